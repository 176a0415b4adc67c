package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnboardingVisible(t *testing.T) {
	for step := -3; step <= 10; step++ {
		want := step >= 1 && step <= 4
		assert.Equal(t, want, OnboardingVisible(step), "step %d", step)
	}
}

func TestResolveOverlay(t *testing.T) {
	anchor := &Anchor{Element: "account-overview", X: 10, Y: 20, Width: 300, Height: 120}

	got := ResolveOverlay(OnboardingState{CurrentStep: 3, Anchor: anchor})
	assert.True(t, got.Show)
	assert.Equal(t, 3, got.Step)
	assert.Equal(t, anchor, got.Anchor)
	assert.NotSame(t, anchor, got.Anchor)

	got = ResolveOverlay(OnboardingState{CurrentStep: 0, Anchor: anchor})
	assert.Equal(t, Overlay{Step: 0}, got)

	got = ResolveOverlay(OnboardingState{CurrentStep: 5, Anchor: anchor})
	assert.False(t, got.Show)

	assert.NotPanics(t, func() {
		got = ResolveOverlay(OnboardingState{CurrentStep: 2})
	})
	assert.False(t, got.Show)
	assert.True(t, got.AwaitingAnchor)
	assert.Nil(t, got.Anchor)
}
