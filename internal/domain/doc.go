// Package domain models city temperature readings as they move through the
// relay pipeline.
//
// # Pipeline
//
// Readings travel strictly forward; only acknowledgments travel back:
//
//	generator ──ws──▶ ingress relay ──POST /webhook──▶ enrichment relay ──POST /api/temperature──▶ storage
//
// A [RawReading] is ephemeral and exists only in transit. The enrichment relay
// turns it into an [EnrichedReading], which storage persists exactly once
// (or not at all when a hop fails). Delivery is best effort: no hop retries
// or queues a reading that failed downstream.
//
// # Reading contract
//
//	city          one of the names in the [CityRegistry]
//	temperature   °C, inclusive range [-50, 60]
//	timestampUtc  epoch seconds, > 0
//	unit          the literal "°C"
//
// Every hop that accepts readings re-checks the contract with a [Validator].
// Violations are classified: a missing, mistyped or malformed field is a
// schema error; a city outside the registry or a temperature outside the
// range is a range error. Both are terminal at the hop that detects them.
//
// # Enrichment
//
// Derived fields are computed once, at the enrichment relay:
//
//	id                   UUIDv7 (millisecond time prefix + random suffix), see [NewID]
//	processedAt          enrichment time, RFC 3339
//	source               provenance tag of the enriching hop
//	cityInfo             registry metadata (country, timezone, coordinates)
//	isoDate              timestampUtc rendered as RFC 3339 UTC
//	temperatureCategory  band derived by [Categorize]
//
// Category bands are closed at their lower edge:
//
//	< 0 freezing | [0,10) cold | [10,20) cool | [20,30) warm | >= 30 hot
//
// # Errors
//
// Errors carry a stable [Kind] plus a human-readable message. Kinds travel on
// the wire so each hop can report the downstream cause to its caller.
package domain
