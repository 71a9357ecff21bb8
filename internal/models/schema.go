package models

// Field is one positional column of a GeoNames dump line.
type Field struct {
	// Name is also the column name used by the SQL stores.
	Name string
	Set  func(*LocationRecord, string)
	Get  func(*LocationRecord) string
}

// Fields is the dump layout in source order. See
// https://download.geonames.org/export/dump/readme.txt
var Fields = []Field{
	{"geonameid", func(r *LocationRecord, v string) { r.ID = v }, func(r *LocationRecord) string { return r.ID }},
	{"name", func(r *LocationRecord, v string) { r.Name = v }, func(r *LocationRecord) string { return r.Name }},
	{"asciiname", func(r *LocationRecord, v string) { r.ASCIIName = v }, func(r *LocationRecord) string { return r.ASCIIName }},
	{"alternatenames", func(r *LocationRecord, v string) { r.AlternateNames = v }, func(r *LocationRecord) string { return r.AlternateNames }},
	{"latitude", func(r *LocationRecord, v string) { r.Latitude = v }, func(r *LocationRecord) string { return r.Latitude }},
	{"longitude", func(r *LocationRecord, v string) { r.Longitude = v }, func(r *LocationRecord) string { return r.Longitude }},
	{"feature_class", func(r *LocationRecord, v string) { r.FeatureClass = v }, func(r *LocationRecord) string { return r.FeatureClass }},
	{"feature_code", func(r *LocationRecord, v string) { r.FeatureCode = v }, func(r *LocationRecord) string { return r.FeatureCode }},
	{"country_code", func(r *LocationRecord, v string) { r.CountryCode = v }, func(r *LocationRecord) string { return r.CountryCode }},
	{"cc2", func(r *LocationRecord, v string) { r.CC2 = v }, func(r *LocationRecord) string { return r.CC2 }},
	{"admin1_code", func(r *LocationRecord, v string) { r.Admin1Code = v }, func(r *LocationRecord) string { return r.Admin1Code }},
	{"admin2_code", func(r *LocationRecord, v string) { r.Admin2Code = v }, func(r *LocationRecord) string { return r.Admin2Code }},
	{"admin3_code", func(r *LocationRecord, v string) { r.Admin3Code = v }, func(r *LocationRecord) string { return r.Admin3Code }},
	{"admin4_code", func(r *LocationRecord, v string) { r.Admin4Code = v }, func(r *LocationRecord) string { return r.Admin4Code }},
	{"population", func(r *LocationRecord, v string) { r.Population = v }, func(r *LocationRecord) string { return r.Population }},
	{"elevation", func(r *LocationRecord, v string) { r.Elevation = v }, func(r *LocationRecord) string { return r.Elevation }},
	{"dem", func(r *LocationRecord, v string) { r.DEM = v }, func(r *LocationRecord) string { return r.DEM }},
	{"timezone", func(r *LocationRecord, v string) { r.Timezone = v }, func(r *LocationRecord) string { return r.Timezone }},
	{"modification_date", func(r *LocationRecord, v string) { r.ModificationDate = v }, func(r *LocationRecord) string { return r.ModificationDate }},
}

// FieldNames returns the column names of Fields in order.
func FieldNames() []string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = f.Name
	}
	return names
}

// Values returns the record's column values in Fields order.
func (r *LocationRecord) Values() []any {
	out := make([]any, len(Fields))
	for i, f := range Fields {
		out[i] = f.Get(r)
	}
	return out
}
