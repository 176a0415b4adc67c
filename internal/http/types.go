package http

import (
	"time"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type healthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

type sessionView struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	Outstanding int        `json:"outstanding"`
	Failed      int        `json:"failed"`
}

func newSessionView(s *dashboard.RefreshSession) *sessionView {
	if s == nil {
		return nil
	}
	v := &sessionView{
		ID:          s.ID.String(),
		Kind:        s.Kind,
		StartedAt:   s.StartedAt,
		Outstanding: s.Outstanding(),
		Failed:      s.Failed(),
	}
	if f := s.FinishedAt(); !f.IsZero() {
		v.FinishedAt = &f
	}
	return v
}

type refreshResponse struct {
	OK      bool         `json:"ok"`
	Session *sessionView `json:"session"`
}

type refreshStatusResponse struct {
	Refreshing bool         `json:"refreshing"`
	Last       *sessionView `json:"last,omitempty"`
	LastPrime  *sessionView `json:"lastPrime,omitempty"`
}

type anchorRequest struct {
	Element string  `json:"element"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	// Clear drops the anchor (element unmounted).
	Clear bool `json:"clear,omitempty"`
}

type stepRequest struct {
	Step int `json:"step"`
}

type selectAccountRequest struct {
	Address string `json:"address"`
}

type themeRequest struct {
	Name   string            `json:"name"`
	Colors map[string]string `json:"colors,omitempty"`
}
