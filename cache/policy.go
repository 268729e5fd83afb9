package cache

import (
	"fmt"
	"strings"
	"time"
)

type policyKind uint8

const (
	policyForever policyKind = iota + 1
	policySameDay
	policyTTL
	policyForce
)

// Policy decides whether an existing artifact may be served without recomputing.
// The zero Policy is invalid; use one of the constructors.
type Policy struct {
	kind policyKind
	ttl  time.Duration
}

// Forever any existing artifact is valid (historical data)
func Forever() Policy { return Policy{kind: policyForever} }

// SameCalendarDay valid while created_at and now share a local calendar date
func SameCalendarDay() Policy { return Policy{kind: policySameDay} }

// TTL valid while now - created_at < d
func TTL(d time.Duration) Policy { return Policy{kind: policyTTL, ttl: d} }

// ForceBypass never valid
func ForceBypass() Policy { return Policy{kind: policyForce} }

// IsZero reports an unset policy
func (p Policy) IsZero() bool { return p.kind == 0 }

// Bypass reports ForceBypass
func (p Policy) Bypass() bool { return p.kind == policyForce }

// Rolling reports a window measured from created_at (TTL) rather than
// one aligned to the calendar
func (p Policy) Rolling() bool { return p.kind == policyTTL }

// Duration the TTL window, 0 for other policies
func (p Policy) Duration() time.Duration { return p.ttl }

// Valid evaluates the policy. A zero createdAt marks an untimestamped artifact,
// whose staleness is owned elsewhere; it is valid under every policy but ForceBypass.
func (p Policy) Valid(createdAt, now time.Time, loc *time.Location) bool {
	if p.kind == policyForce || p.kind == 0 {
		return false
	}
	if createdAt.IsZero() {
		return true
	}
	switch p.kind {
	case policyForever:
		return true
	case policySameDay:
		if loc == nil {
			loc = time.Local
		}
		y1, m1, d1 := createdAt.In(loc).Date()
		y2, m2, d2 := now.In(loc).Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case policyTTL:
		return p.ttl > 0 && now.Sub(createdAt) < p.ttl
	}
	return false
}

// String forever, same_day, ttl:15m0s, force
func (p Policy) String() string {
	switch p.kind {
	case policyForever:
		return "forever"
	case policySameDay:
		return "same_day"
	case policyTTL:
		return "ttl:" + p.ttl.String()
	case policyForce:
		return "force"
	}
	return "unset"
}

// ParsePolicy parses the String form ("ttl:15m" included)
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "forever":
		return Forever(), nil
	case "same_day", "same-day", "daily":
		return SameCalendarDay(), nil
	case "force":
		return ForceBypass(), nil
	}
	if rest, ok := strings.CutPrefix(s, "ttl:"); ok {
		d, err := time.ParseDuration(rest)
		if err != nil || d <= 0 {
			return Policy{}, fmt.Errorf("invalid ttl policy %q", s)
		}
		return TTL(d), nil
	}
	return Policy{}, fmt.Errorf("unknown cache policy %q", s)
}
