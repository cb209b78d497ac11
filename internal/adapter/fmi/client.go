// Package fmi fetches hourly weather observations from the Finnish
// Meteorological Institute's open data WFS API.
package fmi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
	"github.com/couchcryptid/sales-synth-service/internal/observability"
)

// DefaultBaseURL is FMI's open data WFS endpoint.
const DefaultBaseURL = "https://opendata.fmi.fi/wfs"

// DefaultStoredQueryID selects hourly observations in time-value-pair form.
const DefaultStoredQueryID = "fmi::observations::weather::hourly::timevaluepair"

// Client implements domain.ObservationFetcher against the FMI WFS API.
type Client struct {
	baseURL       string
	storedQueryID string
	httpClient    *http.Client
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewClient creates an FMI observation client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:       baseURL,
		storedQueryID: DefaultStoredQueryID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchObservations queries hourly observations for a place. Intervals longer
// than the API's single-query cap are fetched in contiguous chunks and the
// results concatenated. Only rows carrying every requested parameter are
// returned; columns are named by the external parameter codes.
func (c *Client) FetchObservations(ctx context.Context, place string, interval domain.Interval, codes []string) (*domain.Frame, error) {
	chunks, err := interval.Split(domain.MaxFetchSpan)
	if err != nil {
		return nil, fmt.Errorf("fmi fetch: %w", err)
	}

	byTime := make(map[time.Time]map[string]float64)
	for _, chunk := range chunks {
		if err := c.fetchChunk(ctx, place, chunk, codes, byTime); err != nil {
			return nil, err
		}
	}
	return assembleFrame(byTime, codes), nil
}

func (c *Client) fetchChunk(ctx context.Context, place string, chunk domain.Interval, codes []string, byTime map[time.Time]map[string]float64) error {
	params := url.Values{
		"service":        {"WFS"},
		"version":        {"2.0.0"},
		"request":        {"getFeature"},
		"storedquery_id": {c.storedQueryID},
		"place":          {place},
		"starttime":      {chunk.Start.UTC().Format(time.RFC3339)},
		"endtime":        {chunk.End.UTC().Format(time.RFC3339)},
		"timestep":       {"60"},
		"parameters":     {strings.Join(codes, ",")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.countFetch("error")
		return fmt.Errorf("fmi request for %q: %w", place, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.countFetch("error")
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fmi API error: status %d: %s", resp.StatusCode, body)
	}

	if err := parseObservationXML(resp.Body, byTime); err != nil {
		c.countFetch("error")
		return fmt.Errorf("parse fmi response for %q: %w", place, err)
	}
	c.countFetch("success")

	c.logger.Debug("fmi chunk fetched", "place", place, "interval", chunk.String())
	return nil
}

func (c *Client) countFetch(outcome string) {
	if c.metrics != nil {
		c.metrics.FetchRequests.WithLabelValues(outcome).Inc()
	}
}

// WFS 2.0 response types. Namespace prefixes are left unqualified so the
// decoder matches on local names.

type featureCollection struct {
	Members []struct {
		Observation observation `xml:"PointTimeSeriesObservation"`
	} `xml:"member"`
}

type observation struct {
	ObservedProperty struct {
		Href string `xml:"href,attr"`
	} `xml:"observedProperty"`
	Points []measurementTVP `xml:"result>MeasurementTimeseries>point>MeasurementTVP"`
}

type measurementTVP struct {
	Time  string `xml:"time"`
	Value string `xml:"value"`
}

// parseObservationXML folds one response's time-value pairs into byTime.
// Each wfs:member carries a single parameter's series; the parameter code is
// embedded in the observedProperty href as a param query argument.
func parseObservationXML(r io.Reader, byTime map[time.Time]map[string]float64) error {
	var collection featureCollection
	if err := xml.NewDecoder(r).Decode(&collection); err != nil {
		return fmt.Errorf("decode xml: %w", err)
	}

	for _, member := range collection.Members {
		code := paramFromHref(member.Observation.ObservedProperty.Href)
		if code == "" {
			continue
		}
		for _, point := range member.Observation.Points {
			ts, err := time.Parse(time.RFC3339, strings.TrimSpace(point.Time))
			if err != nil {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(point.Value), 64)
			if err != nil || math.IsNaN(v) {
				// Missing measurements arrive as NaN; the row is dropped
				// later when the parameter set is incomplete.
				continue
			}
			ts = ts.UTC()
			if byTime[ts] == nil {
				byTime[ts] = make(map[string]float64)
			}
			byTime[ts][code] = v
		}
	}
	return nil
}

// paramFromHref extracts the parameter code from an observedProperty href of
// the form ...?param=CODE&....
func paramFromHref(href string) string {
	_, rest, ok := strings.Cut(href, "param=")
	if !ok {
		return ""
	}
	code, _, _ := strings.Cut(rest, "&")
	return code
}

// assembleFrame keeps only timestamps carrying every requested code, in
// ascending time order.
func assembleFrame(byTime map[time.Time]map[string]float64, codes []string) *domain.Frame {
	var stamps []time.Time
	for ts, values := range byTime {
		complete := true
		for _, code := range codes {
			if _, ok := values[code]; !ok {
				complete = false
				break
			}
		}
		if complete {
			stamps = append(stamps, ts)
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	frame := domain.NewFrame(stamps)
	for _, code := range codes {
		vals := make([]float64, len(stamps))
		for i, ts := range stamps {
			vals[i] = byTime[ts][code]
		}
		// Length always matches the frame; the only AddColumn failure mode
		// would be a duplicate code, excluded by the parameter mapping.
		_ = frame.AddColumn(code, vals)
	}
	return frame
}
