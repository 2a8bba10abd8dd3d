package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"helpconnect/internal/geo"
	"helpconnect/pkg/types"
)

const emergenciesPageSize = 200

func (s *Service) handleListEmergencies(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	statusFilter := strings.ToUpper(strings.TrimSpace(qs.Get("status")))
	onlyWithLocation := isTruthy(qs.Get("onlyWithLocation"))

	requests, next, err := s.requests.ScanRequests(r.Context(), emergenciesPageSize, qs.Get("pageToken"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	items := make([]*types.HelpRequest, 0, len(requests))
	for _, request := range requests {
		if statusFilter != "" && strings.ToUpper(strings.TrimSpace(string(request.Status))) != statusFilter {
			continue
		}
		if onlyWithLocation && !request.HasLocation() {
			continue
		}
		items = append(items, request)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})

	body := map[string]any{
		"items": items,
		"count": len(items),
	}
	if next != "" {
		body["nextPageToken"] = next
	}

	s.respondJSON(w, http.StatusOK, body)
}

type nearbyEmergency struct {
	*types.HelpRequest
	DistanceKm float64 `json:"distance_km"`
}

func (s *Service) handleNearbyEmergencies(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	lat, latErr := strconv.ParseFloat(qs.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(qs.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		s.respondError(w, types.Validationf("Missing required query params: lat, lng"))
		return
	}

	radius := s.config.DefaultRadiusKm
	if raw := qs.Get("radiusKm"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			s.respondError(w, types.Validationf("radiusKm must be > 0"))
			return
		}
		radius = parsed
	}
	if radius > s.config.MaxRadiusKm {
		radius = s.config.MaxRadiusKm
	}

	var nearby []nearbyEmergency

	// Full scan, then filter. Fine at current table sizes; a bucket index
	// over geo_prefix_5 is the upgrade path when it stops being fine.
	pageToken := ""
	for {
		requests, next, err := s.requests.ScanRequests(r.Context(), emergenciesPageSize, pageToken)
		if err != nil {
			s.respondError(w, err)
			return
		}

		for _, request := range requests {
			status := strings.ToUpper(strings.TrimSpace(string(request.Status)))
			if status != string(types.RequestStatusOpen) && status != string(types.RequestStatusInProgress) {
				continue
			}
			if !request.HasLocation() {
				continue
			}

			distance := geo.HaversineKm(lat, lng, *request.Latitude, *request.Longitude)
			if distance <= radius {
				nearby = append(nearby, nearbyEmergency{HelpRequest: request, DistanceKm: distance})
			}
		}

		if next == "" {
			break
		}
		pageToken = next
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})

	s.respondJSON(w, http.StatusOK, map[string]any{
		"items":    nearby,
		"count":    len(nearby),
		"radiusKm": radius,
	})
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
