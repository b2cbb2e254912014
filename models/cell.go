package models

import "encoding/json"

type Bounds struct {
	MinLat float64 `json:"min_latitude"`
	MaxLat float64 `json:"max_latitude"`
	MinLon float64 `json:"min_longitude"`
	MaxLon float64 `json:"max_longitude"`
}

type Cell struct {
	Token  string `json:"token"`
	Level  int    `json:"level"`
	Parent string `json:"parent,omitempty"`
	Bounds Bounds `json:"bounds"`
}

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Level struct {
	Distance   float64 `json:"distance"`
	Level      int     `json:"level"`
	CellWidth  float64 `json:"cell_width"`
	CellHeight float64 `json:"cell_height"`
}

// Document is an indexed shape; Geometry is a GeoJSON geometry object.
type Document struct {
	ID       string          `json:"id"`
	Geometry json.RawMessage `json:"geometry"`
	Radius   float64         `json:"radius,omitempty"` // turns a Point geometry into a circle
}

type IDs struct {
	IDs []string `json:"ids"`
}

type Tokens struct {
	Tokens []string `json:"tokens"`
}
