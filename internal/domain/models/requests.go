package models

// Requests for the HTTP endpoints. Defined in domain for reuse by the Kafka job handler.

type MatchRequest struct {
	A     float64 `query:"a" json:"a" validate:"gte=-3600,lte=3600"`
	B     float64 `query:"b" json:"b" validate:"gte=-3600,lte=3600"`
	Table string  `query:"table" json:"table" default:"natal" validate:"oneof=natal mundane"`
}

type PositionsRequest struct {
	Date string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

type BirthRequest struct {
	Time      string  `json:"time" yaml:"time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Latitude  float64 `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

type NatalReportRequest struct {
	Start  string        `json:"start" validate:"required,datetime=2006-01-02"`
	End    string        `json:"end" validate:"required,datetime=2006-01-02"`
	Chart  *ChartDTO     `json:"chart" validate:"required_without=Birth"`
	Birth  *BirthRequest `json:"birth" validate:"required_without=Chart"`
	Bodies []string      `json:"bodies" validate:"omitempty,dive,required"`
	Format string        `json:"format" default:"text" validate:"oneof=text markdown json"`
	Store  bool          `json:"store"`
}

type WeeklyReportRequest struct {
	Start  string `query:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End    string `query:"end" json:"end" validate:"required,datetime=2006-01-02"`
	Format string `query:"format" json:"format" default:"text" validate:"oneof=text markdown json"`
}

type SynastryRequest struct {
	A ChartDTO `json:"a" validate:"required"`
	B ChartDTO `json:"b" validate:"required"`
}

// ReportJob is the Kafka payload for asynchronous report generation.
type ReportJob struct {
	Mode   ReportMode `json:"mode"`
	Start  string     `json:"start"`
	End    string     `json:"end"`
	Chart  *ChartDTO  `json:"chart,omitempty"`
	Bodies []string   `json:"bodies,omitempty"`
}
