package geohash

// Codec is the set of geohash operations a grid depends on.
type Codec interface {
	Encode(lat, lon float64, precision int) string
	Decode(hash string) (lat, lon float64)
	BoundingBox(hash string) Box
	SubHashes(hash string) []string
	Neighbors(hash string) []string
	LevelForWidthHeight(lonWidth, latHeight float64) int
	CellSize(length int) (lonWidth, latHeight float64)
	MaxPrecision() int
}

// Std is the package level Codec.
type Std struct{}

var _ Codec = Std{}

func (Std) Encode(lat, lon float64, precision int) string {
	return Encode(lat, lon, uint(precision))
}

func (Std) Decode(hash string) (float64, float64) { return Decode(hash) }

func (Std) BoundingBox(hash string) Box { return BoundingBox(hash) }

func (Std) SubHashes(hash string) []string { return SubHashes(hash) }

func (Std) Neighbors(hash string) []string { return GetNeighbors(hash) }

func (Std) LevelForWidthHeight(lonWidth, latHeight float64) int {
	return LevelForWidthHeight(lonWidth, latHeight)
}

func (Std) CellSize(length int) (float64, float64) { return CellSize(length) }

func (Std) MaxPrecision() int { return MaxPrecision }
