package ingestion

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 3, 1)

	tracker.Start()
	tracker.Done(false)
	tracker.Done(true)
	tracker.Done(false)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
	output := buf.String()
	assert.Contains(t, output, "3/3")
	assert.Contains(t, output, "100.0%")
	assert.Contains(t, output, "failed: 1")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 10)

	tracker.Start()
	tracker.Done(false)
	assert.Equal(t, "", buf.String(), "should not print under interval")

	tracker.Finish()
	output := buf.String()
	assert.Contains(t, output, "1/4")
	assert.Contains(t, output, "files/s")
	assert.Contains(t, output, "\n")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 1)

	tracker.Start()
	tracker.Finish()
	assert.Contains(t, buf.String(), "0/0")
}

func TestProgressTracker_DoneBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1, 1)

	tracker.Start()
	tracker.Done(false)
	tracker.Done(false)
	assert.NotContains(t, buf.String(), "2/1")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Done(false)
	tracker.Finish()
	assert.Equal(t, "", buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_NilWriter(t *testing.T) {
	tracker := NewProgressTracker(nil, 2, 0)
	tracker.Start()
	tracker.Done(false)
	tracker.Finish()
}
