package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar_NilIsNoOp(t *testing.T) {
	var bar *ProgressBar
	bar.Add()
	bar.Set(2)
	bar.Finish()
}

func TestSpinner_NilIsNoOp(t *testing.T) {
	var s *Spinner
	s.Start()
	s.UpdateMessage("still going")
	s.Stop()
}

func TestProgressBar_AdvancesToTotal(t *testing.T) {
	bar := NewProgressBar(2, "testing")
	bar.Add()
	bar.Add()
	bar.Finish()
}

func TestSpinner_UpdateMessage(t *testing.T) {
	s := NewSpinner("first")
	assert.Equal(t, " first", s.spinner.Suffix)

	s.UpdateMessage("second")
	assert.Equal(t, " second", s.spinner.Suffix)
}
