// Package domain models microburst (low-altitude wind shear) detections as
// they are shown on the monitoring dashboard.
//
// # Detections
//
// A detection is a single wind-shear event reported near an airport by one
// sensing modality or a fusion of several. Detections are immutable once
// created; whether a detection is "active" is derived at query time from its
// timestamp, never stored.
//
// Event IDs:
//
//	"evt_<YYYYMMDD>_<seq>"  →  e.g. "evt_20240426_007"
//	The date is the UTC day of the detection timestamp and seq is a
//	zero-padded per-source sequence. IDs from the remote detection API are
//	accepted verbatim; uniqueness is enforced by the store, not the format.
//
// Timestamps:
//
//	Compared at millisecond resolution. The remote API emits ISO 8601 without
//	a zone designator ("2024-04-26T15:10:00.123456"), which is read as UTC.
//	Epoch milliseconds are also accepted. See [ParseTimestamp].
//
// Severity classification:
//
//	LOW < MODERATE < SEVERE < EXTREME, ordered by ascending hazard to
//	aircraft on approach or departure. The feed default is LOW.
//
// Detection methods:
//
//	LIDAR, DOPPLER_RADAR, ANEMOMETER, FUSION. UNKNOWN is produced only by
//	feed normalization when the peer omits or misspells the method.
//
// # Continents
//
// Continents are coarse display buckets assigned from coordinates by a fixed
// list of bounding boxes evaluated in priority order (see [Classify]). The
// boxes overlap at several edges, e.g. lat 40, lon -20 is inside both the
// America and Europe boxes; rule order is the tie-break and must not change,
// otherwise historical detections would be bucketed differently on reload.
//
// A continent is assigned once, when the detection is created. Continent
// values supplied by a remote peer are ignored.
package domain
