package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"geohash-prefix-grid/index"
	"geohash-prefix-grid/models"
	"geohash-prefix-grid/prefixgrid"
	"geohash-prefix-grid/shape"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	grid  prefixgrid.Grid
	index *index.Index
}

func NewHandler(ix *index.Index) *Handler {
	return &Handler{grid: ix.Grid(), index: ix}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) toCell(c prefixgrid.Cell) models.Cell {
	b := c.Shape()
	var parent string
	if p := prefixgrid.Parent(h.grid, c); p != nil {
		parent = p.Token()
	}
	return models.Cell{
		Token:  c.Token(),
		Level:  c.Level(),
		Parent: parent,
		Bounds: models.Bounds{
			MinLat: b.Min.Lat(),
			MaxLat: b.Max.Lat(),
			MinLon: b.Min.Lon(),
			MaxLon: b.Max.Lon(),
		},
	}
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// queryInt returns def when the parameter is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// queryPoint reads lat and lon and checks them against the grid's world.
func (h *Handler) queryPoint(r *http.Request) (shape.Point, error) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		return shape.Point{}, err
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		return shape.Point{}, err
	}
	p, err := h.grid.Context().MakePoint(lon, lat)
	if err != nil {
		return shape.Point{}, err
	}
	return shape.Point{Point: p}, nil
}

// toShape parses a GeoJSON geometry; a point with a positive radius becomes a
// circle.
func toShape(geometry []byte, radius float64) (shape.Shape, error) {
	s, err := shape.FromGeoJSON(geometry)
	if err != nil {
		return nil, err
	}
	if p, ok := s.(shape.Point); ok && radius > 0 {
		return shape.Circle{Center: p.Point, Radius: radius}, nil
	}
	return s, nil
}

func readShape(r *http.Request) (shape.Shape, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	radius := 0.0
	if r.URL.Query().Get("radius") != "" {
		if radius, err = queryFloat(r, "radius"); err != nil {
			return nil, err
		}
	}
	return toShape(body, radius)
}

// coverStatus maps a covering error to a response code.
func coverStatus(err error) int {
	switch {
	case errors.Is(err, prefixgrid.ErrTooManyCells):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, prefixgrid.ErrInvalidLevel):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) parseCell(w http.ResponseWriter, r *http.Request) (prefixgrid.Cell, bool) {
	cell, err := prefixgrid.ParseCell(h.grid, mux.Vars(r)["token"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return cell, true
}

// LevelForDistance maps a distance in degrees to a grid level
func (h *Handler) LevelForDistance(w http.ResponseWriter, r *http.Request) {
	distance, err := queryFloat(r, "distance")
	if err != nil || distance < 0 {
		http.Error(w, "Invalid distance", http.StatusBadRequest)
		return
	}
	level := h.grid.LevelForDistance(distance)
	width, height := h.grid.CellSize(level)
	writeJSON(w, models.Level{Distance: distance, Level: level, CellWidth: width, CellHeight: height})
}

// CellForPoint returns the cell holding lat/lon at the requested level
func (h *Handler) CellForPoint(w http.ResponseWriter, r *http.Request) {
	p, err := h.queryPoint(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	level, err := queryInt(r, "level", h.grid.MaxLevels())
	if err != nil || level < 1 || level > h.grid.MaxLevels() {
		http.Error(w, "Invalid level", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.toCell(h.grid.CellForPoint(p.Point, level)))
}

func (h *Handler) GetCell(w http.ResponseWriter, r *http.Request) {
	cell, ok := h.parseCell(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.toCell(cell))
}

func (h *Handler) GetChildren(w http.ResponseWriter, r *http.Request) {
	cell, ok := h.parseCell(w, r)
	if !ok {
		return
	}
	if cell.Level() >= h.grid.MaxLevels() {
		http.Error(w, "Cell is already at the maximum level", http.StatusBadRequest)
		return
	}
	subs := cell.SubCells()
	cells := make([]models.Cell, 0, len(subs))
	for _, sub := range subs {
		cells = append(cells, h.toCell(sub))
	}
	writeJSON(w, cells)
}

// GetPoint decodes a full precision token; shorter tokens are regions
func (h *Handler) GetPoint(w http.ResponseWriter, r *http.Request) {
	cell, ok := h.parseCell(w, r)
	if !ok {
		return
	}
	p, ok := h.grid.PointForToken(cell.Token())
	if !ok {
		http.Error(w, "Token is not at full precision", http.StatusNotFound)
		return
	}
	writeJSON(w, models.Point{Latitude: p.Lat(), Longitude: p.Lon()})
}

// CoverShape lists the cells covering a GeoJSON geometry
func (h *Handler) CoverShape(w http.ResponseWriter, r *http.Request) {
	s, err := readShape(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	level, err := queryInt(r, "level", h.index.DetailLevel())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	parents := r.URL.Query().Get("parents") == "true"

	cells, err := prefixgrid.Cover(r.Context(), h.grid, s, level, parents, h.index.MaxCells())
	if err != nil {
		http.Error(w, err.Error(), coverStatus(err))
		return
	}
	writeJSON(w, models.Tokens{Tokens: prefixgrid.Tokens(cells)})
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	s, err := toShape(doc.Geometry, doc.Radius)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.index.Add(r.Context(), index.Document{ID: doc.ID, Shape: s})
	if err != nil {
		http.Error(w, "Failed to index document: "+err.Error(), coverStatus(err))
		return
	}
	writeJSONStatus(w, http.StatusCreated, models.IDs{IDs: []string{id}})
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := h.index.Remove(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, index.ErrNotFound) {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to remove document", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	s, err := readShape(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ids, err := h.index.Search(r.Context(), s)
	if err != nil {
		http.Error(w, "Search failed: "+err.Error(), coverStatus(err))
		return
	}
	writeJSON(w, models.IDs{IDs: ids})
}

// CellDocuments lists documents indexed anywhere inside a cell
func (h *Handler) CellDocuments(w http.ResponseWriter, r *http.Request) {
	cell, ok := h.parseCell(w, r)
	if !ok {
		return
	}
	ids, err := h.index.InCell(r.Context(), cell)
	if err != nil {
		http.Error(w, "Lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, models.IDs{IDs: ids})
}

// Nearby returns documents in the point's cell and the cells around it
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	p, err := h.queryPoint(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ids, err := h.index.Nearby(r.Context(), p.Point)
	if err != nil {
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, models.IDs{IDs: ids})
}
