// Package plan computes deterministic installation plans for Encapsia
// plugins. Given the desired specs, the currently installed set and the
// available artifacts (local store, optionally S3), it decides per plugin
// whether to install, upgrade, downgrade, reinstall or skip.
package plan

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/encapsia/encapsia-cli/internal/plugininfo"
)

// Action is the planner's decision for one candidate artifact.
type Action int

const (
	Install Action = iota
	Upgrade
	Downgrade
	Reinstall
	Skip
)

func (a Action) String() string {
	switch a {
	case Install:
		return "install"
	case Upgrade:
		return "upgrade"
	case Downgrade:
		return "downgrade"
	case Reinstall:
		return "reinstall"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Options controls the per-candidate action decision.
type Options struct {
	// AllowDowngrade turns candidates older than the installed version
	// into downgrades instead of skips.
	AllowDowngrade bool
	// AllowReinstall turns candidates equal to the installed version into
	// reinstalls instead of skips.
	AllowReinstall bool
	// IncludePrereleases lets pre-release versions win candidate
	// resolution.
	IncludePrereleases bool
}

// Entry is the planner's decision for one desired spec.
type Entry struct {
	// Candidate is the concrete artifact that resolution selected.
	Candidate *plugininfo.Info
	// Existing is the currently installed artifact for the same
	// (name, variant), or nil when none is installed.
	Existing *plugininfo.Info
	// FromS3 marks candidates that must be downloaded before installing.
	FromS3 bool
	Action Action
}

// Label renders the action for display, prefixed with the extra download
// step for S3-sourced candidates.
func (e *Entry) Label() string {
	label := e.Action.String()
	if e.Action == Skip {
		return label + " (" + e.skipReason() + ")"
	}
	if e.FromS3 {
		label = "download and " + label
	}
	return label
}

func (e *Entry) skipReason() string {
	switch e.Candidate.Compare(e.Existing) {
	case 0:
		return "already installed"
	case -1:
		return "downgrade not requested"
	default:
		return "nothing to do"
	}
}

// ExistingVersion renders the installed version, or "-" when the plugin is
// not installed.
func (e *Entry) ExistingVersion() string {
	if e.Existing == nil {
		return "-"
	}
	return e.Existing.FormattedVersion()
}

// Plan is an ordered list of entries, sorted by the candidate's
// (name, variant, version) key so the confirmation display is
// deterministic across runs.
type Plan struct {
	entries []*Entry
}

// Entries returns all entries in plan order.
func (p *Plan) Entries() []*Entry { return p.entries }

// Pending returns the entries that require work, in plan order.
func (p *Plan) Pending() []*Entry {
	var pending []*Entry
	for _, e := range p.entries {
		if e.Action != Skip {
			pending = append(pending, e)
		}
	}
	return pending
}

// Build resolves every desired spec to a concrete candidate and decides an
// action for each. Resolution tries the local store first and falls back to
// the available (S3-sourced) set; a spec that resolves nowhere fails the
// whole plan. A plan is all-or-nothing in resolvability even though its
// execution only touches non-skip entries.
func Build(specs plugininfo.Specs, installed, local, available plugininfo.Infos, opts Options) (*Plan, error) {
	if !opts.IncludePrereleases {
		local = local.FilterOutPrereleases()
		available = available.FilterOutPrereleases()
	}

	entries := make([]*Entry, 0, specs.Len())
	for _, spec := range specs.All() {
		entry, err := resolve(spec, local, available)
		if err != nil {
			return nil, err
		}
		entry.Existing = installed.LatestMatching(plugininfo.Spec{
			Name:    entry.Candidate.Name(),
			Variant: plugininfo.NamedVariant(entry.Candidate.Variant()),
		})
		entry.Action = decide(entry, opts)
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b *Entry) int {
		return a.Candidate.Compare(b.Candidate)
	})
	return &Plan{entries: entries}, nil
}

func resolve(spec plugininfo.Spec, local, available plugininfo.Infos) (*Entry, error) {
	if candidate := local.LatestMatching(spec); candidate != nil {
		return &Entry{Candidate: candidate}, nil
	}
	if candidate := available.LatestMatching(spec); candidate != nil {
		return &Entry{Candidate: candidate, FromS3: true}, nil
	}
	return nil, fmt.Errorf("no plugin matching %s found in any available source", spec)
}

func decide(entry *Entry, opts Options) Action {
	if entry.Existing == nil {
		return Install
	}
	switch entry.Candidate.Compare(entry.Existing) {
	case 1:
		return Upgrade
	case -1:
		if opts.AllowDowngrade {
			return Downgrade
		}
		return Skip
	default:
		if opts.AllowReinstall {
			return Reinstall
		}
		return Skip
	}
}

// Render writes the plan as a table for user confirmation.
func (p *Plan) Render(w io.Writer) error {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Plugin", "Installed", "Candidate", "Action"})
	for _, e := range p.entries {
		t.AppendRow(table.Row{
			e.Candidate.NameAndVariant(),
			e.ExistingVersion(),
			e.Candidate.FormattedVersion(),
			e.Label(),
		})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	_, err := w.Write(buf.Bytes())
	return err
}
