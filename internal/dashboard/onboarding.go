package dashboard

// Anchor is the rendered position of the element the coachmark overlay
// points at.
type Anchor struct {
	Element string  `json:"element"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

type OnboardingState struct {
	CurrentStep int
	Anchor      *Anchor
}

// Overlay is the resolved onboarding coachmark for one render pass.
type Overlay struct {
	Step   int     `json:"step"`
	Show   bool    `json:"show"`
	Anchor *Anchor `json:"anchor,omitempty"`

	// AwaitingAnchor is set when the step is active but the anchor element
	// has not been captured yet. The overlay is withheld until it is.
	AwaitingAnchor bool `json:"awaitingAnchor,omitempty"`
}

const (
	firstOnboardingStep = 1
	lastOnboardingStep  = 4
)

// OnboardingVisible reports whether the overlay is shown at step.
func OnboardingVisible(step int) bool {
	return step >= firstOnboardingStep && step <= lastOnboardingStep
}

// ResolveOverlay maps the externally owned step counter and the captured
// anchor to an overlay. It never fails on a missing anchor.
func ResolveOverlay(st OnboardingState) Overlay {
	if !OnboardingVisible(st.CurrentStep) {
		return Overlay{Step: st.CurrentStep}
	}
	if st.Anchor == nil {
		return Overlay{Step: st.CurrentStep, AwaitingAnchor: true}
	}
	anchor := *st.Anchor
	return Overlay{Step: st.CurrentStep, Show: true, Anchor: &anchor}
}
