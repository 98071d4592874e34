package fetcher

import "math/rand/v2"

// UserAgents rotates through a fixed set of browser user agent strings.
type UserAgents struct {
	agents []string
}

// NewUserAgents returns a rotation over agents. An empty list yields the fallback agent.
func NewUserAgents(agents []string) *UserAgents {
	if len(agents) == 0 {
		agents = []string{fallbackUserAgent}
	}
	return &UserAgents{agents: append([]string(nil), agents...)}
}

// Pick returns a random agent from the rotation.
func (u *UserAgents) Pick() string {
	return u.agents[rand.IntN(len(u.agents))]
}
