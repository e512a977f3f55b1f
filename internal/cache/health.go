package cache

import (
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// JurisdictionHealth records the outcome of the most recent retrieval
// against one jurisdiction. Read by the health endpoint, never by the pipeline.
type JurisdictionHealth struct {
	Jurisdiction   string    `json:"jurisdiction"`
	LastChecked    time.Time `json:"lastChecked"`
	DocumentsFound int       `json:"documentsFound"`
	AgentReachable bool      `json:"agentReachable"`
	LastError      string    `json:"lastError,omitempty"`
}

// HealthCache is a bounded TTL map of per-jurisdiction retrieval health.
type HealthCache struct {
	cache *gocache.Cache
}

// NewHealthCache creates a health cache; entries expire after ttl.
func NewHealthCache(ttl time.Duration) *HealthCache {
	return &HealthCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Record stores the latest health observation for a jurisdiction.
func (h *HealthCache) Record(health JurisdictionHealth) {
	data, err := json.Marshal(health)
	if err != nil {
		return
	}
	h.cache.Set(health.Jurisdiction, data, gocache.DefaultExpiration)
}

// Get returns the stored health for a jurisdiction, if still fresh.
func (h *HealthCache) Get(jurisdiction string) (JurisdictionHealth, bool) {
	val, found := h.cache.Get(jurisdiction)
	if !found {
		return JurisdictionHealth{}, false
	}
	var health JurisdictionHealth
	if err := json.Unmarshal(val.([]byte), &health); err != nil {
		return JurisdictionHealth{}, false
	}
	return health, true
}

// All returns every unexpired health entry.
func (h *HealthCache) All() []JurisdictionHealth {
	items := h.cache.Items()
	out := make([]JurisdictionHealth, 0, len(items))
	for _, item := range items {
		var health JurisdictionHealth
		if err := json.Unmarshal(item.Object.([]byte), &health); err == nil {
			out = append(out, health)
		}
	}
	return out
}
