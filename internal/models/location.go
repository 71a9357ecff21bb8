package models

import (
	"strconv"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
)

// LocationRecord is one GeoNames place entry. Coordinates are kept as the source
// text; Loc and Geohash are derived from them right before the record is stored.
type LocationRecord struct {
	ID               string   `json:"geonameid" bson:"_id"`
	Name             string   `json:"name" bson:"name"`
	ASCIIName        string   `json:"asciiname" bson:"asciiname"`
	AlternateNames   string   `json:"alternatenames" bson:"alternatenames"`
	Latitude         string   `json:"latitude" bson:"latitude"`
	Longitude        string   `json:"longitude" bson:"longitude"`
	Loc              GeoPoint `json:"loc" bson:"loc"`
	Geohash          string   `json:"geohash" bson:"geohash"`
	FeatureClass     string   `json:"feature_class" bson:"feature_class"`
	FeatureCode      string   `json:"feature_code" bson:"feature_code"`
	CountryCode      string   `json:"country_code" bson:"country_code"`
	CC2              string   `json:"cc2" bson:"cc2"`
	Admin1Code       string   `json:"admin1_code" bson:"admin1_code"`
	Admin2Code       string   `json:"admin2_code" bson:"admin2_code"`
	Admin3Code       string   `json:"admin3_code" bson:"admin3_code"`
	Admin4Code       string   `json:"admin4_code" bson:"admin4_code"`
	Population       string   `json:"population" bson:"population"`
	Elevation        string   `json:"elevation" bson:"elevation"`
	DEM              string   `json:"dem" bson:"dem"`
	Timezone         string   `json:"timezone" bson:"timezone"`
	ModificationDate string   `json:"modification_date" bson:"modification_date"`
}

// GeoPoint is a GeoJSON point. Coordinates are always [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type" bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

// Lon returns the point's longitude.
func (p GeoPoint) Lon() float64 { return p.Coordinates[0] }

// Lat returns the point's latitude.
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

// NewPoint builds a point from textual longitude and latitude. Unparseable or
// out of range values give the zero point.
func NewPoint(lon, lat string) GeoPoint {
	p := GeoPoint{Type: "Point"}

	x, errLon := strconv.ParseFloat(lon, 64)
	y, errLat := strconv.ParseFloat(lat, 64)
	if errLon != nil || errLat != nil {
		return p
	}
	if !s2.LatLngFromDegrees(y, x).IsValid() {
		return p
	}

	p.Coordinates = [2]float64{x, y}
	return p
}

// Locate derives Loc and Geohash from the record's coordinate text.
func (r *LocationRecord) Locate() {
	r.Loc = NewPoint(r.Longitude, r.Latitude)
	r.Geohash = geohash.EncodeWithPrecision(r.Loc.Lat(), r.Loc.Lon(), 12)
}
