// Package wavenc provides an optional native-NetCDF ingestion path for
// WaveWatch III / SWAN model grids, for bundles that ship raw .nc files
// instead of pre-extracted JSON. It produces the same domain.ModelData the
// JSON ingestion path produces.
package wavenc

import (
	"fmt"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// latVarNames/lonVarNames/timeVarNames list the variable-name candidates
// tried in order, mirroring the multi-name-pattern tolerance of the
// FES NetCDF loader this package is grounded on.
var (
	latVarNames    = []string{"lat", "latitude", "y"}
	lonVarNames    = []string{"lon", "longitude", "x"}
	timeVarNames   = []string{"time", "forecast_time"}
	heightNames    = []string{"hs", "swh", "height", "HTSGW"}
	periodNames    = []string{"tp", "perpw", "period", "PERPW"}
	directionNames = []string{"dp", "dirpw", "direction", "DIRPW"}
)

// Region bounds the lat/lon window loaded from the grid, so a global WW3
// run doesn't pull every point into memory.
type Region struct {
	Name         string
	MinLat       float64
	MaxLat       float64
	MinLon       float64
	MaxLon       float64
	ReferenceDay time.Time // base time added to relative hour offsets
}

// HawaiiRegion is the default bounding box surrounding the four shores of
// §4.C, padded for swell approach angles.
func HawaiiRegion() Region {
	return Region{Name: "Hawaii", MinLat: 18.0, MaxLat: 25.0, MinLon: -162.0, MaxLon: -154.0}
}

// Load opens a WW3/SWAN NetCDF grid and extracts a domain.ModelData
// restricted to the given region.
func Load(path string, modelID string, region Region) (domain.ModelData, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return domain.ModelData{}, fmt.Errorf("open netcdf grid %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	lats, err := readNamedVar(nc, latVarNames)
	if err != nil {
		return domain.ModelData{}, fmt.Errorf("read latitude: %w", err)
	}
	lons, err := readNamedVar(nc, lonVarNames)
	if err != nil {
		return domain.ModelData{}, fmt.Errorf("read longitude: %w", err)
	}
	times, err := readNamedVar(nc, timeVarNames)
	if err != nil {
		return domain.ModelData{}, fmt.Errorf("read time: %w", err)
	}

	heightVar, err := findVar(nc, heightNames)
	if err != nil {
		return domain.ModelData{}, fmt.Errorf("find height variable: %w", err)
	}
	periodVar, _ := findVar(nc, periodNames)
	directionVar, _ := findVar(nc, directionNames)

	nTime, nLat, nLon := len(times), len(lats), len(lons)

	heights, err := read3D(heightVar, nTime, nLat, nLon)
	if err != nil {
		return domain.ModelData{}, fmt.Errorf("read height grid: %w", err)
	}
	periods, _ := read3D(periodVar, nTime, nLat, nLon)
	directions, _ := read3D(directionVar, nTime, nLat, nLon)

	forecasts := make([]domain.ModelForecast, 0, nTime)
	for ti := 0; ti < nTime; ti++ {
		ts := timestampFor(region, times[ti])
		var points []domain.WaveModelPoint
		for li, lat := range lats {
			if lat < region.MinLat || lat > region.MaxLat {
				continue
			}
			for lj, lon := range lons {
				if !withinLon(lon, region.MinLon, region.MaxLon) {
					continue
				}
				point := domain.WaveModelPoint{Lat: lat, Lon: lon}
				if h := heights[ti][li][lj]; !isFill(h) {
					point.Height = ptr(h)
				}
				if periods != nil {
					if p := periods[ti][li][lj]; !isFill(p) {
						point.Period = ptr(p)
					}
				}
				if directions != nil {
					if d := directions[ti][li][lj]; !isFill(d) {
						point.Direction = ptr(d)
					}
				}
				if point.Height == nil {
					continue
				}
				points = append(points, point)
			}
		}
		if len(points) == 0 {
			continue
		}
		forecasts = append(forecasts, domain.ModelForecast{
			Timestamp:    ts,
			ForecastHour: ti * 3, // WW3 bulletins are conventionally 3-hourly
			Points:       points,
		})
	}

	data := domain.ModelData{
		ModelID:   modelID,
		RunTime:   region.ReferenceDay,
		Region:    region.Name,
		Forecasts: forecasts,
	}
	data.SortForecastsAscending()
	return data, nil
}

func ptr(v float64) *float64 { return &v }

// isFill treats NetCDF's conventional fill sentinels (very large magnitude
// or NaN) as missing data.
func isFill(v float64) bool {
	return v != v || v > 1e20 || v < -1e20
}

func withinLon(lon, min, max float64) bool {
	if min <= max {
		return lon >= min && lon <= max
	}
	// Antimeridian-spanning region.
	return lon >= min || lon <= max
}

// timestampFor converts a relative-hours time value (the common WW3
// encoding) into an absolute timestamp against the region's reference day.
func timestampFor(region Region, hoursOffset float64) time.Time {
	base := region.ReferenceDay
	if base.IsZero() {
		base = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return base.Add(time.Duration(hoursOffset * float64(time.Hour)))
}

func findVar(nc netcdf.File, candidates []string) (netcdf.Var, error) {
	for _, name := range candidates {
		if v, err := nc.Var(name); err == nil {
			return v, nil
		}
	}
	return netcdf.Var{}, fmt.Errorf("none of %v found", candidates)
}

func readNamedVar(nc netcdf.File, candidates []string) ([]float64, error) {
	v, err := findVar(nc, candidates)
	if err != nil {
		return nil, err
	}
	return read1D(v)
}

func read1D(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	n, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readFloats(v, int(n))
}

func read3D(v netcdf.Var, nTime, nLat, nLon int) ([][][]float64, error) {
	total := nTime * nLat * nLon
	flat, err := readFloats(v, total)
	if err != nil {
		return nil, err
	}
	out := make([][][]float64, nTime)
	idx := 0
	for t := 0; t < nTime; t++ {
		out[t] = make([][]float64, nLat)
		for la := 0; la < nLat; la++ {
			out[t][la] = flat[idx : idx+nLon]
			idx += nLon
		}
	}
	return out, nil
}

// readFloats reads n values from v regardless of its underlying NetCDF
// numeric type, upcasting everything to float64.
func readFloats(v netcdf.Var, n int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, err
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, n)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, n)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, n)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported netcdf variable type: %v", t)
	}
}
