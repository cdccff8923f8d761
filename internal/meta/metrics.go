package meta

import "github.com/VictoriaMetrics/metrics"

var (
	memoryHits      = metrics.GetOrCreateCounter(`dbmeta_metadata_lookups_total{source="memory"}`)
	cacheHits       = metrics.GetOrCreateCounter(`dbmeta_metadata_lookups_total{source="cache"}`)
	loaderCalls     = metrics.GetOrCreateCounter(`dbmeta_metadata_lookups_total{source="loader"}`)
	versionMismatch = metrics.GetOrCreateCounter(`dbmeta_cache_version_mismatch_total`)
	cacheGetErrors  = metrics.GetOrCreateCounter(`dbmeta_cache_errors_total{op="get"}`)
	cacheSetErrors  = metrics.GetOrCreateCounter(`dbmeta_cache_errors_total{op="set"}`)
	cacheDelErrors  = metrics.GetOrCreateCounter(`dbmeta_cache_errors_total{op="remove"}`)
	cacheInvErrors  = metrics.GetOrCreateCounter(`dbmeta_cache_errors_total{op="invalidate"}`)
)
