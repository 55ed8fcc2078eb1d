package plugininfo

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// specNVVRegex matches "<name>", "<name>-<version-prefix>" and
	// "<name>-variant-<variant>-<version-prefix>".
	specNVVRegex = regexp.MustCompile(
		`^(` + allowedName + `)(?:-variant-(` + allowedVariant + `))?(?:-(` + allowedVersion + `))?$`,
	)
	// specAnyRegex matches "<name>-ANY[-<version-prefix>]" with a
	// case-insensitive ANY keyword.
	specAnyRegex = regexp.MustCompile(
		`^(` + allowedName + `)(?i:-ANY)(?:-(` + allowedVersion + `))?$`,
	)
)

// InvalidSpecError reports a spec string that matches neither accepted form.
type InvalidSpecError struct {
	Input string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid plugin spec %q", e.Input)
}

// Variant is a tagged selector for the variant part of a spec: either a
// named variant (where the empty name means "no variant") or the ANY
// wildcard, which matches every variant including none. The tag keeps the
// wildcard distinct from a real variant literally named "ANY".
type Variant struct {
	any  bool
	name string
}

// NamedVariant selects exactly the given variant. An empty name selects
// plugins with no variant.
func NamedVariant(name string) Variant { return Variant{name: name} }

// AnyVariant selects every variant, including none.
func AnyVariant() Variant { return Variant{any: true} }

// IsAny reports whether the variant is the ANY wildcard.
func (v Variant) IsAny() bool { return v.any }

// Name returns the selected variant name. It is "" both for "no variant"
// and for the wildcard; check IsAny first.
func (v Variant) Name() string { return v.name }

func (v Variant) String() string {
	if v.any {
		return "ANY"
	}
	return v.name
}

// Spec is a pattern selecting zero or more concrete plugin artifacts. The
// version prefix is compared against the raw version string of a candidate,
// either exactly or as a prefix; an empty prefix matches everything.
type Spec struct {
	Name          string
	Variant       Variant
	VersionPrefix string
	ExactMatch    bool
}

// ParseSpec parses the compact spec string syntax:
//
//	<name>
//	<name>-<version-prefix>
//	<name>-variant-<variant>-<version-prefix>
//	<name>-ANY[-<version-prefix>]   (ANY is case insensitive)
func ParseSpec(input string) (Spec, error) {
	if m := specNVVRegex.FindStringSubmatch(input); m != nil {
		return Spec{Name: m[1], Variant: NamedVariant(m[2]), VersionPrefix: m[3]}, nil
	}
	if m := specAnyRegex.FindStringSubmatch(input); m != nil {
		return Spec{Name: m[1], Variant: AnyVariant(), VersionPrefix: m[2]}, nil
	}
	return Spec{}, &InvalidSpecError{Input: input}
}

// NewSpecFromInfo returns the exact-match spec reproducing precisely the
// given artifact's name, variant and raw version.
func NewSpecFromInfo(info *Info) Spec {
	return Spec{
		Name:          info.Name(),
		Variant:       NamedVariant(info.Variant()),
		VersionPrefix: info.Version(),
		ExactMatch:    true,
	}
}

// Match reports whether the candidate artifact is selected by this spec.
func (s Spec) Match(info *Info) bool {
	if s.Name != info.Name() {
		return false
	}
	if !s.Variant.IsAny() && s.Variant.Name() != info.Variant() {
		return false
	}
	if s.ExactMatch {
		return s.VersionPrefix == info.Version()
	}
	return strings.HasPrefix(info.Version(), s.VersionPrefix)
}

// Filter returns the subset of infos selected by this spec.
func (s Spec) Filter(infos Infos) Infos {
	var out []*Info
	for _, info := range infos.All() {
		if s.Match(info) {
			out = append(out, info)
		}
	}
	return NewInfos(out...)
}

func (s Spec) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	switch {
	case s.Variant.IsAny():
		sb.WriteString("-ANY")
	case s.Variant.Name() != "":
		sb.WriteString("-variant-" + s.Variant.Name())
	}
	if s.VersionPrefix != "" {
		sb.WriteString("-" + s.VersionPrefix)
	}
	if s.ExactMatch {
		sb.WriteString(" [exact]")
	}
	return sb.String()
}

// AsVersionDictEntry serializes the spec into its version-file shape: a bare
// version string when there is no variant and the match is exact (the
// implicit defaults), otherwise a table with the non-default keys spelled
// out. The ANY wildcard has no version-file representation and serializes
// without a variant key.
func (s Spec) AsVersionDictEntry() any {
	variant := ""
	if !s.Variant.IsAny() {
		variant = s.Variant.Name()
	}
	if variant == "" && s.ExactMatch {
		return s.VersionPrefix
	}
	entry := map[string]any{"version": s.VersionPrefix}
	if variant != "" {
		entry["variant"] = variant
	}
	if !s.ExactMatch {
		entry["exact"] = false
	}
	return entry
}

// Specs is an ordered collection of Spec.
type Specs struct {
	specs []Spec
}

// NewSpecs builds a Specs preserving the given order.
func NewSpecs(specs ...Spec) Specs {
	return Specs{specs: append([]Spec(nil), specs...)}
}

// SpecsFromStrings parses each spec string in order.
func SpecsFromStrings(inputs []string) (Specs, error) {
	specs := make([]Spec, 0, len(inputs))
	for _, input := range inputs {
		spec, err := ParseSpec(input)
		if err != nil {
			return Specs{}, err
		}
		specs = append(specs, spec)
	}
	return NewSpecs(specs...), nil
}

// SpecsFromInfos builds one exact spec per artifact.
func SpecsFromInfos(infos Infos) Specs {
	specs := make([]Spec, 0, infos.Len())
	for _, info := range infos.All() {
		specs = append(specs, NewSpecFromInfo(info))
	}
	return NewSpecs(specs...)
}

// SpecsFromVersionDict builds specs from decoded version-file data. A bare
// string entry means an exact match with no variant; a table entry may
// override the variant (default none) and exactness (default true).
func SpecsFromVersionDict(versions map[string]any) (Specs, error) {
	specs := make([]Spec, 0, len(versions))
	for name, definition := range versions {
		switch def := definition.(type) {
		case string:
			specs = append(specs, Spec{
				Name:          name,
				VersionPrefix: def,
				ExactMatch:    true,
			})
		case map[string]any:
			version, ok := def["version"].(string)
			if !ok {
				return Specs{}, fmt.Errorf("version entry for plugin %q has no version", name)
			}
			variant, _ := def["variant"].(string)
			exact := true
			if e, ok := def["exact"].(bool); ok {
				exact = e
			}
			specs = append(specs, Spec{
				Name:          name,
				Variant:       NamedVariant(variant),
				VersionPrefix: version,
				ExactMatch:    exact,
			})
		default:
			return Specs{}, fmt.Errorf("version entry for plugin %q has unknown type %T", name, definition)
		}
	}
	return NewSpecs(specs...), nil
}

// All returns the specs in order.
func (ss Specs) All() []Spec { return ss.specs }

// Len returns the number of specs.
func (ss Specs) Len() int { return len(ss.specs) }

// AsVersionDict serializes all specs into version-file data, using the
// compact form per entry where possible.
func (ss Specs) AsVersionDict() map[string]any {
	dict := make(map[string]any, len(ss.specs))
	for _, s := range ss.specs {
		dict[s.Name] = s.AsVersionDictEntry()
	}
	return dict
}

// AsInfos materializes one concrete artifact per spec. It fails on specs
// with the ANY wildcard.
func (ss Specs) AsInfos() (Infos, error) {
	infos := make([]*Info, 0, len(ss.specs))
	for _, s := range ss.specs {
		info, err := NewFromSpec(s)
		if err != nil {
			return Infos{}, err
		}
		infos = append(infos, info)
	}
	return NewInfos(infos...), nil
}

// MatchAny reports whether any spec selects the given artifact.
func (ss Specs) MatchAny(info *Info) bool {
	for _, s := range ss.specs {
		if s.Match(info) {
			return true
		}
	}
	return false
}

// Filter returns the subset of infos selected by at least one spec.
func (ss Specs) Filter(infos Infos) Infos {
	var out []*Info
	for _, info := range infos.All() {
		if ss.MatchAny(info) {
			out = append(out, info)
		}
	}
	return NewInfos(out...)
}
