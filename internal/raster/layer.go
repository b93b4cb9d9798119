package raster

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// LayerRole identifies one of the closed set of input layers a run may
// carry. Unknown role names are rejected at the pipeline boundary so
// missing or misnamed layers fail before any scoring starts.
type LayerRole string

const (
	// RoleTemperature is the land-surface-temperature signal. Required.
	RoleTemperature LayerRole = "temperature"
	// RoleVulnerability is the social-vulnerability layer. Required.
	RoleVulnerability LayerRole = "vulnerability"
	// RoleGridAccess is the powered-infrastructure proximity layer.
	// Optional auxiliary input.
	RoleGridAccess LayerRole = "grid_access"
)

// AllRoles returns every known role in stable order.
func AllRoles() []LayerRole {
	return []LayerRole{RoleTemperature, RoleVulnerability, RoleGridAccess}
}

// RequiredRoles returns the roles every run must supply.
func RequiredRoles() []LayerRole {
	return []LayerRole{RoleTemperature, RoleVulnerability}
}

// ParseRole validates a role name from config or a bundle file.
func ParseRole(s string) (LayerRole, error) {
	role := LayerRole(strings.TrimSpace(strings.ToLower(s)))
	for _, known := range AllRoles() {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown layer role %q (valid: %s)", s, roleNames())
}

func roleNames() string {
	names := make([]string, 0, len(AllRoles()))
	for _, r := range AllRoles() {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}

// Polarity states whether higher or lower raw values indicate greater
// suitability for the layer.
type Polarity int

const (
	// Ascending means higher raw values are more suitable.
	Ascending Polarity = iota
	// Descending means lower raw values are more suitable; normalization
	// inverts the scale.
	Descending
)

func (p Polarity) String() string {
	if p == Descending {
		return "descending"
	}
	return "ascending"
}

// MarshalJSON encodes the polarity as its string form.
func (p Polarity) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts "ascending" or "descending"; anything else is a
// configuration fault.
func (p *Polarity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePolarity(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePolarity validates a polarity name.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "ascending", "":
		return Ascending, nil
	case "descending":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("unknown polarity %q (valid: ascending, descending)", s)
	}
}

// Layer is one co-registered input raster with its suitability polarity.
type Layer struct {
	Role     LayerRole
	Polarity Polarity
	Grid     *Grid
}

// LayerSet maps roles to the layers supplied for a run.
type LayerSet map[LayerRole]*Layer

// Roles returns the roles present in the set in stable order.
func (ls LayerSet) Roles() []LayerRole {
	roles := make([]LayerRole, 0, len(ls))
	for role := range ls {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Validate enforces the run entry invariants: every required role
// present, no nil layers or grids, and every grid co-registered with the
// first (identical dimensions and extent). Violations are fatal before
// any scoring proceeds.
func (ls LayerSet) Validate() error {
	for _, required := range RequiredRoles() {
		layer, ok := ls[required]
		if !ok || layer == nil {
			return fmt.Errorf("missing required layer %q", required)
		}
	}

	var reference *Grid
	var referenceRole LayerRole
	for _, role := range ls.Roles() {
		layer := ls[role]
		if layer == nil || layer.Grid == nil {
			return fmt.Errorf("layer %q has no grid", role)
		}
		if layer.Role != role {
			return fmt.Errorf("layer keyed as %q carries role %q", role, layer.Role)
		}
		if reference == nil {
			reference = layer.Grid
			referenceRole = role
			continue
		}
		if !reference.SameShape(layer.Grid) {
			return fmt.Errorf(
				"layer %q grid %dx%d %s is not co-registered with layer %q grid %dx%d %s",
				role, layer.Grid.Rows, layer.Grid.Cols, layer.Grid.Extent,
				referenceRole, reference.Rows, reference.Cols, reference.Extent,
			)
		}
	}
	return nil
}
