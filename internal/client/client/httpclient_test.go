package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
	"github.com/noodlevault/noodlevault/internal/common"
)

func TestWireChange_TupleRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   changeset.Change
		json string
	}{
		{
			name: "update",
			in:   changeset.NewUpdate([]byte("abc"), 42),
			json: `["` + base64.StdEncoding.EncodeToString([]byte("abc")) + `",42]`,
		},
		{
			name: "tombstone",
			in:   changeset.NewDelete(7),
			json: `[null,7]`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(WireFromChange(tc.in))
			require.NoError(t, err)
			require.JSONEq(t, tc.json, string(b))

			var w WireChange
			require.NoError(t, json.Unmarshal(b, &w))
			require.True(t, w.ToChange().Equal(tc.in))
		})
	}
}

func TestCheck_ParsesUpdatesAndTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/check", r.URL.Path)

		var req checkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "alice", req.Username)
		require.Equal(t, int64(100), req.LastUpdateTime)

		resp := checkResponse{
			Updates: map[string]WireChange{
				"example.com": {Value: []byte("payload"), Timestamp: 150},
				"gone.com":    {Deleted: true, Timestamp: 140},
			},
			Time: 160,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	changes, serverTime, err := c.Check(context.Background(), "alice", []byte("pw"), 100)
	require.NoError(t, err)
	require.Equal(t, int64(160), serverTime)
	require.Len(t, changes, 2)
	require.Equal(t, changeset.Updated, changes["example.com"].Kind)
	require.Equal(t, []byte("payload"), changes["example.com"].Value)
	require.Equal(t, changeset.Deleted, changes["gone.com"].Kind)
}

func TestUpdate_SendsTombstonesAsNull(t *testing.T) {
	var got updateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.NoError(t, json.NewEncoder(w).Encode(timeResponse{Time: 200}))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	updates := map[string]changeset.Change{
		"a.com": changeset.NewUpdate([]byte("v"), 10),
		"b.com": changeset.NewDelete(11),
	}
	serverTime, err := c.Update(context.Background(), "alice", []byte("pw"), updates)
	require.NoError(t, err)
	require.Equal(t, int64(200), serverTime)

	require.False(t, got.Updates["a.com"].Deleted)
	require.Equal(t, []byte("v"), got.Updates["a.com"].Value)
	require.True(t, got.Updates["b.com"].Deleted)
}

func TestPost_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: common.ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: common.ErrUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, want: common.ErrUnavailable},
		{name: "not found", status: http.StatusNotFound, want: common.ErrUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL)
			_, _, err := c.GetSalts(context.Background(), "alice")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPost_ConnectionRefused(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1")
	_, _, err := c.GetSalts(context.Background(), "alice")
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestDownload_SkipsTombstones(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := downloadResponse{
			Header: []byte("header"),
			Pairs: map[string]WireChange{
				"keep.com": {Value: []byte("v"), Timestamp: 5},
				"dead.com": {Deleted: true, Timestamp: 6},
			},
			Time: 50,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	dl, err := c.Download(context.Background(), "alice", []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, []byte("header"), dl.Header)
	require.Equal(t, int64(50), dl.Time)
	require.Len(t, dl.Records, 1)
	require.Equal(t, "keep.com", dl.Records[0].Key)
}
