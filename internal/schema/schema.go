package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the value type of a canonical column.
type Kind int

const (
	Text Kind = iota
	Number
)

func (k Kind) String() string {
	if k == Number {
		return "number"
	}
	return "text"
}

// Role tells consumers what a canonical column means, independent of its display name.
type Role string

const (
	RoleVISN           Role = "visn"
	RoleFacility       Role = "facility"
	RoleState          Role = "state"
	RoleCity           Role = "city"
	RoleDiagnosis      Role = "diagnosis"
	RoleProcedure      Role = "procedure"
	RoleVolume         Role = "volume"
	RoleUniquePatients Role = "unique_patients"
	RoleProvider       Role = "provider"
	RoleSpecialty      Role = "specialty"
)

// Field is one canonical column: its key, display name, type and recognized synonyms.
type Field struct {
	Key     string
	Display string
	Kind    Kind
	Role    Role
	// Synonyms are lowercase, trimmed source headers, matched in order.
	Synonyms []string
}

// Schema is an ordered set of canonical fields. Field order is resolution order.
type Schema struct {
	Name     string
	Fields   []Field
	Required []string
}

// Field returns the field for a canonical key.
func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// ByRole returns the first field carrying the given role.
func (s *Schema) ByRole(r Role) (Field, bool) {
	for _, f := range s.Fields {
		if f.Role == r {
			return f, true
		}
	}
	return Field{}, false
}

// Column returns the display name for a role, or "" when the schema has no such role.
func (s *Schema) Column(r Role) string {
	f, ok := s.ByRole(r)
	if !ok {
		return ""
	}
	return f.Display
}

// Keys returns the canonical keys in declaration order.
func (s *Schema) Keys() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Key
	}
	return out
}

// Displays returns the canonical display names in declaration order.
func (s *Schema) Displays() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Display
	}
	return out
}

// Normalized is the multi-file normalization schema.
var Normalized = &Schema{
	Name: "normalized",
	Fields: []Field{
		{Key: "visn", Display: "VISN", Role: RoleVISN,
			Synonyms: []string{"visn", "visn_id", "visn number", "visn_num"}},
		{Key: "facility_name", Display: "FacilityName", Role: RoleFacility,
			Synonyms: []string{"facility", "facility_name", "facility name", "station_name", "site_name",
				"hospitalname", "organizationname", "va facility"}},
		{Key: "state", Display: "State", Role: RoleState,
			Synonyms: []string{"state", "st"}},
		{Key: "city", Display: "City", Role: RoleCity,
			Synonyms: []string{"city", "town", "city_name"}},
		{Key: "icd10", Display: "ICD10_Code", Role: RoleDiagnosis,
			Synonyms: []string{"icd10", "icd_10", "icd-10", "dx_code", "diagnosis_code", "icddisplay"}},
		{Key: "cpt", Display: "CPT_Code", Role: RoleProcedure,
			Synonyms: []string{"cpt", "cpt_code", "cpt code", "procedure_code", "proc_code"}},
		{Key: "encounters", Display: "Encounters", Kind: Number, Role: RoleVolume,
			Synonyms: []string{"encounters", "encounter_count", "visit_count", "visits", "total_encounters",
				"encountersredacted", "cptcountsredacted"}},
		{Key: "provider_name", Display: "ProviderName", Role: RoleProvider,
			Synonyms: []string{"provider", "provider_name", "provider name", "providername", "physician",
				"physician_name", "name", "hcp_name", "last name", "lastname"}},
		{Key: "provider_specialty", Display: "ProviderSpecialty", Role: RoleSpecialty,
			Synonyms: []string{"specialty", "provider_specialty", "provider specialty",
				"provclassandspecialization", "occ4", "occeng", "occupation"}},
	},
}

// ProviderCentric is the provider-centric dashboard schema. Its first four columns are required.
var ProviderCentric = &Schema{
	Name: "provider",
	Fields: []Field{
		{Key: "facility", Display: "Facility", Role: RoleFacility,
			Synonyms: []string{"facility", "facility_name", "facility name", "facilityname"}},
		{Key: "provider_name", Display: "ProviderName", Role: RoleProvider,
			Synonyms: []string{"providername", "provider_name", "provider name", "provider"}},
		{Key: "unique_patients", Display: "UniquePatientsRedacted", Kind: Number, Role: RoleUniquePatients,
			Synonyms: []string{"uniquepatientsredacted", "unique_patients", "unique patients", "uniquepatients"}},
		{Key: "encounters", Display: "EncountersRedacted", Kind: Number, Role: RoleVolume,
			Synonyms: []string{"encountersredacted", "encounters", "encounter_count"}},
		{Key: "specialty", Display: "ProvClassAndSpecialization", Role: RoleSpecialty,
			Synonyms: []string{"provclassandspecialization", "specialty", "provider_specialty", "provider specialty"}},
		{Key: "diagnosis", Display: "ICDDisplay", Role: RoleDiagnosis,
			Synonyms: []string{"icddisplay", "icd10", "icd_10", "icd-10", "diagnosis_code"}},
	},
	Required: []string{"Facility", "ProviderName", "UniquePatientsRedacted", "EncountersRedacted"},
}

var registry = map[string]*Schema{
	Normalized.Name:      Normalized,
	ProviderCentric.Name: ProviderCentric,
}

// Lookup returns a built-in schema by name. An empty name selects Normalized.
func Lookup(name string) (*Schema, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Normalized, nil
	}
	if s, ok := registry[n]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown schema %q (use %s)", name, strings.Join(Names(), " or "))
}

// Names lists the built-in schema names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
