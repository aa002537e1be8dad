package models

// SinkKind names an output path for printed tickets.
type SinkKind string

const (
	SinkDevice SinkKind = "device"
	SinkSystem SinkKind = "system"
)

// Settings holds small app-level configuration persisted under its own key.
type Settings struct {
	LogoData      string   `bson:"logo_data" json:"logo_data"`
	PreferredSink SinkKind `bson:"preferred_sink" json:"preferred_sink"`
}
