// Package roster loads the static set of agents a session can display: one
// manager followed by its collaborators in name order.
package roster

import (
	"cmp"
	"slices"
	"strings"
)

// Role distinguishes the orchestrating manager from its collaborators.
type Role string

const (
	RoleManager      Role = "MANAGER"
	RoleCollaborator Role = "COLLABORATOR"
)

// Descriptor is one agent as returned by the directory endpoint.
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Directory is the directory endpoint's response body.
type Directory struct {
	Manager       *Descriptor  `json:"manager"`
	Collaborators []Descriptor `json:"collaborators"`
}

// Agent is a roster member. Its identity never changes after the roster is
// built; live status is tracked separately by the status board.
type Agent struct {
	ID          string
	Name        string
	Description string
	Role        Role
}

// Roster is an ordered, read-only set of agents. The manager, when present,
// is always first.
type Roster struct {
	agents []Agent
}

// Build orders a directory response into a Roster. Collaborators without an
// id cannot be matched against caller chains and are returned in skipped.
func Build(dir Directory) (r Roster, skipped []Descriptor) {
	collaborators := make([]Descriptor, 0, len(dir.Collaborators))
	for _, d := range dir.Collaborators {
		if strings.TrimSpace(d.ID) == "" {
			skipped = append(skipped, d)
			continue
		}
		collaborators = append(collaborators, d)
	}
	slices.SortStableFunc(collaborators, func(a, b Descriptor) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	agents := make([]Agent, 0, len(collaborators)+1)
	if dir.Manager != nil {
		agents = append(agents, newAgent(*dir.Manager, RoleManager))
	}
	for _, d := range collaborators {
		agents = append(agents, newAgent(d, RoleCollaborator))
	}
	return Roster{agents: agents}, skipped
}

// New builds a Roster from agents already in display order.
func New(agents ...Agent) Roster {
	return Roster{agents: slices.Clone(agents)}
}

func newAgent(d Descriptor, role Role) Agent {
	name := d.Name
	if name == "" {
		name = d.ID
	}
	return Agent{
		ID:          d.ID,
		Name:        name,
		Description: d.Description,
		Role:        role,
	}
}

// Len returns the number of agents.
func (r Roster) Len() int { return len(r.agents) }

// IsEmpty reports whether the roster has no agents.
func (r Roster) IsEmpty() bool { return len(r.agents) == 0 }

// Agents returns the agents in display order.
func (r Roster) Agents() []Agent { return slices.Clone(r.agents) }

// At returns the agent at display position i.
func (r Roster) At(i int) Agent { return r.agents[i] }

// Find looks an agent up by id.
func (r Roster) Find(id string) (Agent, bool) {
	for _, a := range r.agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}
