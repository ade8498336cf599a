package draw

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusInactive, StatusActive, StatusFinished:
		return st, nil
	default:
		return "", fmt.Errorf("unknown draw status %q", s)
	}
}

func (s Status) CanEditConfig() bool { return s == StatusInactive }
func (s Status) CanEditRoster() bool { return s == StatusInactive }
func (s Status) CanAssign() bool     { return s == StatusActive }

// Allowed transitions, restart is the only way out of finished
var transitions = map[Status][]Status{
	StatusInactive: {StatusActive},
	StatusActive:   {StatusFinished, StatusInactive},
	StatusFinished: {StatusInactive},
}

func CheckTransition(from, to Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// CheckStart validates the preconditions of inactive -> active
func CheckStart(t Tournament) error {
	if strings.TrimSpace(t.Name) == "" {
		return validationError("tournament name is required")
	}
	if len(t.Clubs) != t.TotalClubs {
		return validationError("exactly %d clubs are required to start the draw, %d registered", t.TotalClubs, len(t.Clubs))
	}
	return nil
}
