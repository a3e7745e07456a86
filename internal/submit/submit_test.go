package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-tracker/internal/geo"
	"route-tracker/internal/recorder"
	"route-tracker/internal/trip"
)

func sampleTrack() recorder.Track {
	return recorder.Track{
		History: []geo.GeoSample{
			{Latitude: 23.0225, Longitude: 72.5714, TimestampMillis: 1714550400000, RawSpeed: 10, SmoothedSpeed: 10},
			{Latitude: 23.02259, Longitude: 72.5714, TimestampMillis: 1714550401000, RawSpeed: 12, SmoothedSpeed: 11.1234},
		},
		TotalDistanceKm: 1.23456,
	}
}

func TestBuildPayload(t *testing.T) {
	p := BuildPayload(sampleTrack(), trip.Ref{PathID: "path-1", VehicleID: "veh-1"}, "user-1")

	want := Payload{
		LocationHistory: []SamplePayload{
			{Latitude: 23.0225, Longitude: 72.5714, Timestamp: 1714550400000, Speed: 36},
			{Latitude: 23.02259, Longitude: 72.5714, Timestamp: 1714550401000, Speed: 40.04},
		},
		PathID:          "path-1",
		UserID:          "user-1",
		VehicleID:       "veh-1",
		TotalDistanceKm: 1.23,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPayloadEmptyTrack(t *testing.T) {
	p := BuildPayload(recorder.Track{}, trip.Ref{}, "u")
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"locationHistory":[]`)
}

func TestClientSubmit(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/data-collection", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"Data saved"}`))
	}))
	defer srv.Close()

	p := BuildPayload(sampleTrack(), trip.Ref{PathID: "p", VehicleID: "v"}, "u")
	rc, err := NewClient(srv.URL+"/", time.Second).Submit(context.Background(), "tok", p)
	require.NoError(t, err)
	assert.Equal(t, "Data saved", rc.Message)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("backend received (-want +got):\n%s", diff)
	}
}

func TestClientSubmitStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token expired"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Submit(context.Background(), "tok", Payload{})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindStatus, te.Kind)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Equal(t, "Token expired", te.Message)
	assert.Contains(t, err.Error(), "401")
}

func TestClientSubmitNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Submit(context.Background(), "tok", Payload{})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindNetwork, te.Kind)
}

func TestClientRegisterTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submit-information", r.URL.Path)
		var d trip.Details
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		assert.Equal(t, "bike", d.VehicleType)
		if assert.NotNil(t, d.CurrentLocation) {
			assert.Equal(t, 23.0225, d.CurrentLocation.Lat)
		}
		_, _ = w.Write([]byte(`{"pathId":"p-9","vehicleId":"v-9"}`))
	}))
	defer srv.Close()

	ref, err := NewClient(srv.URL, time.Second).RegisterTrip(context.Background(), "tok", trip.Details{
		VehicleType:         "bike",
		VehicleNumber:       "X1",
		VehicleMass:         200,
		CurrentLocation:     &trip.Location{Lat: 23.0225, Lng: 72.5714},
		DestinationLocation: &trip.Location{Lat: 23.2, Lng: 72.6},
	})
	require.NoError(t, err)
	assert.Equal(t, trip.Ref{PathID: "p-9", VehicleID: "v-9"}, ref)
}

func TestClientRegisterTripIncompleteAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pathId":"p-9"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).RegisterTrip(context.Background(), "tok", trip.Details{})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindDecode, te.Kind)
}

type fakePublisher struct {
	topic   string
	body    []byte
	err     error
	stopped bool
}

func (f *fakePublisher) Publish(topic string, body []byte) error {
	f.topic, f.body = topic, body
	return f.err
}

func (f *fakePublisher) Stop() { f.stopped = true }

func TestNSQSubmitter(t *testing.T) {
	pub := &fakePublisher{}
	n := &NSQSubmitter{producer: pub, topic: "trips"}

	p := BuildPayload(sampleTrack(), trip.Ref{PathID: "p", VehicleID: "v"}, "u")
	rc, err := n.Submit(context.Background(), "tok", p)
	require.NoError(t, err)
	assert.Equal(t, "trips", pub.topic)
	assert.NotContains(t, string(pub.body), "tok")
	assert.Contains(t, rc.Message, "trips")

	var decoded Payload
	require.NoError(t, json.Unmarshal(pub.body, &decoded))
	assert.Equal(t, p, decoded)

	pub.err = errors.New("E_TOPIC_FULL")
	_, err = n.Submit(context.Background(), "tok", p)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindPublish, te.Kind)

	require.NoError(t, n.Close())
	assert.True(t, pub.stopped)
}
