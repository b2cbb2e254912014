package geohash

// Cell height (degrees latitude) and width (degrees longitude) per hash
// length. Odd lengths split longitude 8 ways and latitude 4 ways, even lengths
// the reverse.
var hashLenToLatHeight, hashLenToLonWidth [MaxPrecision + 1]float64

func init() {
	hashLenToLatHeight[0] = 180
	hashLenToLonWidth[0] = 360
	even := false
	for i := 1; i <= MaxPrecision; i++ {
		if even {
			hashLenToLatHeight[i] = hashLenToLatHeight[i-1] / 8
			hashLenToLonWidth[i] = hashLenToLonWidth[i-1] / 4
		} else {
			hashLenToLatHeight[i] = hashLenToLatHeight[i-1] / 4
			hashLenToLonWidth[i] = hashLenToLonWidth[i-1] / 8
		}
		even = !even
	}
}

// CellSize returns the width and height in degrees of a cell of the given
// hash length.
func CellSize(length int) (lonWidth, latHeight float64) {
	return hashLenToLonWidth[length], hashLenToLatHeight[length]
}

// LevelForWidthHeight returns the shortest hash length whose cells are
// narrower than lonWidth and shorter than latHeight, or MaxPrecision when
// none are.
func LevelForWidthHeight(lonWidth, latHeight float64) int {
	for length := 1; length < MaxPrecision; length++ {
		if hashLenToLatHeight[length] < latHeight && hashLenToLonWidth[length] < lonWidth {
			return length
		}
	}
	return MaxPrecision
}
