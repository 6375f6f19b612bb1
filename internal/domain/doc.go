// Package domain models the ocean and atmospheric observations that feed the
// Hawaii surf forecast fusion engine, plus the data-fusion output types.
//
// # Data Sources
//
// Buoy observations originate from NOAA's National Data Buoy Center (NDBC)
// fixed-field realtime format. Weather periods come from the National
// Weather Service (NWS) gridpoint forecast API. Wave model points come from
// NOAA WAVEWATCH III (WW3) and SWAN model runs, delivered as JSON payloads
// by an upstream fetcher (out of scope here — see SPEC_FULL.md §1).
//
// # Units
//
// Wave heights are stored in meters; convert to Hawaiian-scale feet with
// [ToHawaiianFeet] (feet = meters × 6.56168, i.e. face height). Periods are
// in seconds, directions in degrees (0–360, 0 = from North, clockwise), wind
// speeds in m/s, pressure in hPa, temperatures in °C.
//
// # Quality
//
// Every swell-bearing record carries a tri-state [Quality]: valid, suspect,
// or excluded. Excluded records are dropped before forecast synthesis (see
// the prepare package); suspect records pass through with caveats.
package domain
