package vpn

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRangeContains(t *testing.T) {
	rng, err := ParseRange("10.8.0.0/24")
	require.NoError(t, err)

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.8.0.1", true},
		{"10.8.0.5", true},
		{"10.8.0.255", true},
		{"10.8.1.5", false},
		{"192.168.1.10", false},
		{"fe80::1", false},
		{"unknown", false},
		{"", false},
		{"10.8.0", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, rng.Contains(tt.ip), tt.ip)
	}

	require.True(t, InRange("172.16.5.9", "172.16.0.0/16"))
	require.False(t, InRange("10.8.0.5", "not-a-cidr"))
}

func TestParseRange_Invalid(t *testing.T) {
	for _, cidr := range []string{"10.8.0.0", "10.8.0.0/33", "fe80::/64", "abc/24"} {
		_, err := ParseRange(cidr)
		require.Error(t, err, cidr)
	}

	rng, err := ParseRange("10.8.0.77/24")
	require.NoError(t, err)
	require.True(t, rng.Contains("10.8.0.1"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "real ip wins", headers: map[string]string{"X-Real-IP": "10.8.0.5", "X-Forwarded-For": "1.1.1.1"}, want: "10.8.0.5"},
		{name: "first forwarded entry", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, want: "203.0.113.5"},
		{name: "cloudflare", headers: map[string]string{"CF-Connecting-IP": "198.51.100.2"}, want: "198.51.100.2"},
		{name: "no headers", headers: nil, want: UnknownIP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = "127.0.0.1:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			require.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestProxyHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://gateway.local/", nil)
	r.Header.Set("X-Real-IP", "10.8.0.5")

	headers := ProxyHeaders(r)
	require.NotNil(t, headers["x-real-ip"])
	require.Equal(t, "10.8.0.5", *headers["x-real-ip"])
	require.Nil(t, headers["x-forwarded-for"])
	require.Equal(t, "gateway.local", *headers["host"])
}

func prefixedStatus() string {
	return fmt.Sprintf(`TITLE,OpenVPN 2.5.9 x86_64-pc-linux-gnu
TIME,2026-03-10 12:00:00,%d
HEADER,CLIENT_LIST,Common Name,Real Address,Virtual Address,Virtual IPv6 Address,Bytes Received,Bytes Sent,Connected Since,Connected Since (time_t),Username
CLIENT_LIST,client1,203.0.113.5:1194,10.8.0.2,,1024,2048,2026-03-10 11:59:50,%d,UNDEF
CLIENT_LIST,client2,203.0.113.9:40000,10.8.0.3,,1024,2048,2026-03-10 11:00:00,%d,UNDEF
HEADER,ROUTING_TABLE,Virtual Address,Common Name,Real Address,Last Ref,Last Ref (time_t)
ROUTING_TABLE,10.8.0.2,client1,203.0.113.5:1194,2026-03-10 11:59:55,%d
GLOBAL_STATS,Max bcast/mcast queue length,0
END
`, now.Unix(), now.Add(-10*time.Second).Unix(), now.Add(-time.Hour).Unix(), now.Add(-5*time.Second).Unix())
}

const plainStatus = `OpenVPN CLIENT LIST
Updated,Tue Mar 10 12:00:00 2026
Common Name,Real Address,Bytes Received,Bytes Sent,Connected Since
client3,198.51.100.7:51000,100,200,Tue Mar 10 11:59:40 2026
ROUTING TABLE
Virtual Address,Common Name,Real Address,Last Ref
10.8.0.6,client3,198.51.100.7:51000,Tue Mar 10 11:59:58 2026
GLOBAL STATS
Max bcast/mcast queue length,0
END
`

func TestParseStatus_Prefixed(t *testing.T) {
	snap, err := ParseStatus(strings.NewReader(prefixedStatus()), time.UTC)
	require.NoError(t, err)

	require.Equal(t, now, snap.UpdatedAt)
	require.Len(t, snap.Connections, 2)
	require.Len(t, snap.Routes, 1)

	c := snap.Connections[0]
	require.Equal(t, "client1", c.CommonName)
	require.Equal(t, "203.0.113.5", c.RealIP)
	require.Equal(t, "1194", c.RealPort)
	require.Equal(t, "10.8.0.2", c.VirtualAddress)
	require.Equal(t, now.Add(-10*time.Second), c.ConnectedSince)

	r := snap.Routes[0]
	require.Equal(t, "10.8.0.2", r.VirtualAddress)
	require.Equal(t, "203.0.113.5", r.RealIP)
	require.Equal(t, now.Add(-5*time.Second), r.LastRef)
}

func TestParseStatus_Plain(t *testing.T) {
	snap, err := ParseStatus(strings.NewReader(plainStatus), time.UTC)
	require.NoError(t, err)

	require.Equal(t, now, snap.UpdatedAt)
	require.Len(t, snap.Connections, 1)
	require.Len(t, snap.Routes, 1)

	c := snap.Connections[0]
	require.Equal(t, "client3", c.CommonName)
	require.Equal(t, "198.51.100.7", c.RealIP)
	require.Equal(t, "51000", c.RealPort)
	require.Equal(t, "10.8.0.6", c.VirtualAddress, "filled from the routing table")
	require.Equal(t, now.Add(-20*time.Second), c.ConnectedSince)
	require.Equal(t, now.Add(-2*time.Second), snap.Routes[0].LastRef)
}

func TestParseStatus_MinimalRowsAndTabs(t *testing.T) {
	input := "CLIENT_LIST,client1,203.0.113.5:1194,10.8.0.2\n" +
		"CLIENT_LIST\tclient9\tudp4:192.0.2.1:5000\t10.8.0.9\n"
	snap, err := ParseStatus(strings.NewReader(input), time.UTC)
	require.NoError(t, err)
	require.Len(t, snap.Connections, 2)
	require.True(t, snap.UpdatedAt.IsZero())

	require.Equal(t, "192.0.2.1", snap.Connections[1].RealIP)
	require.Equal(t, "5000", snap.Connections[1].RealPort)
	require.Equal(t, "10.8.0.9", snap.Connections[1].VirtualAddress)
}

func TestLookupPeer(t *testing.T) {
	snap, err := ParseStatus(strings.NewReader("CLIENT_LIST,client1,203.0.113.5:1194,10.8.0.2\n"), time.UTC)
	require.NoError(t, err)

	found := snap.LookupPeer("203.0.113.5")
	require.True(t, found.Found)
	require.NotNil(t, found.Port)
	require.Equal(t, "1194", *found.Port)
	require.Equal(t, "client1", found.CommonName)
	require.Equal(t, "10.8.0.2", found.VirtualAddress)

	missing := snap.LookupPeer("203.0.113.6")
	require.False(t, missing.Found)
	require.Nil(t, missing.Port)
	require.NotEmpty(t, missing.Message)
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := NewFileSource(filepath.Join(dir, "missing.log"), time.UTC).Snapshot(ctx)
	require.ErrorIs(t, err, ErrStatusLogMissing)

	path := filepath.Join(dir, "openvpn-status.log")
	require.NoError(t, os.WriteFile(path, []byte(prefixedStatus()), 0o644))

	src := NewFileSource(path, time.UTC)
	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Connections, 2)
	require.False(t, snap.ModTime.IsZero())
	require.Positive(t, snap.Size)

	lookup, err := LookupPeerByIP(ctx, src, "203.0.113.9")
	require.NoError(t, err)
	require.True(t, lookup.Found)
	require.Equal(t, "40000", *lookup.Port)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.Snapshot(cancelled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheckStatus_Windows(t *testing.T) {
	conn := func(since time.Time) Connection {
		return Connection{CommonName: "c", RealAddress: "203.0.113.5:1194", RealIP: "203.0.113.5",
			RealPort: "1194", VirtualAddress: "10.8.0.2", ConnectedSince: since}
	}
	route := func(lastRef time.Time) Route {
		return Route{VirtualAddress: "10.8.0.2", RealIP: "203.0.113.5", LastRef: lastRef}
	}

	tests := []struct {
		name string
		snap Snapshot
		want bool
	}{
		{
			name: "fresh last ref",
			snap: Snapshot{Connections: []Connection{conn(now.Add(-time.Hour))}, Routes: []Route{route(now.Add(-5 * time.Second))}, UpdatedAt: now},
			want: true,
		},
		{
			name: "stale last ref beats recent connect",
			snap: Snapshot{Connections: []Connection{conn(now.Add(-5 * time.Second))}, Routes: []Route{route(now.Add(-20 * time.Second))}, UpdatedAt: now},
			want: false,
		},
		{
			name: "recent connect with fresh file",
			snap: Snapshot{Connections: []Connection{conn(now.Add(-10 * time.Second))}, UpdatedAt: now.Add(-5 * time.Second)},
			want: true,
		},
		{
			name: "recent connect with stale file",
			snap: Snapshot{Connections: []Connection{conn(now.Add(-10 * time.Second))}, UpdatedAt: now.Add(-time.Minute)},
			want: false,
		},
		{
			name: "file only fresh",
			snap: Snapshot{Connections: []Connection{conn(time.Time{})}, UpdatedAt: now.Add(-10 * time.Second)},
			want: true,
		},
		{
			name: "file only stale",
			snap: Snapshot{Connections: []Connection{conn(time.Time{})}, UpdatedAt: now.Add(-20 * time.Second)},
			want: false,
		},
		{
			name: "mtime used without export timestamp",
			snap: Snapshot{Connections: []Connection{conn(time.Time{})}, ModTime: now.Add(-3 * time.Second)},
			want: true,
		},
		{
			name: "no timestamps at all",
			snap: Snapshot{Connections: []Connection{conn(time.Time{})}},
			want: false,
		},
		{
			name: "not listed",
			snap: Snapshot{UpdatedAt: now},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := CheckStatus(&tt.snap, StatusQuery{RealIP: "203.0.113.5"}, now)
			require.Equal(t, tt.want, report.IsActive)
			require.Equal(t, tt.want, report.ConnectionInfo != nil)
			require.NotNil(t, report.Connections)
		})
	}
}

func TestCheckStatus_StrictAndPort(t *testing.T) {
	snap := &Snapshot{
		UpdatedAt: now,
		Connections: []Connection{
			{CommonName: "laptop", RealIP: "203.0.113.5", RealPort: "1194", RealAddress: "203.0.113.5:1194", VirtualAddress: "10.8.0.2"},
			{CommonName: "phone", RealIP: "203.0.113.5", RealPort: "40000", RealAddress: "203.0.113.5:40000", VirtualAddress: "10.8.0.3"},
		},
		Routes: []Route{
			{VirtualAddress: "10.8.0.2", RealIP: "203.0.113.5", LastRef: now.Add(-2 * time.Second)},
			{VirtualAddress: "10.8.0.3", RealIP: "203.0.113.5", LastRef: now.Add(-3 * time.Second)},
		},
	}

	loose := CheckStatus(snap, StatusQuery{RealIP: "203.0.113.5"}, now)
	require.True(t, loose.IsActive)
	require.Equal(t, 2, loose.ActiveConnections)
	require.False(t, loose.Ambiguous)

	strict := CheckStatus(snap, StatusQuery{RealIP: "203.0.113.5", Strict: true}, now)
	require.False(t, strict.IsActive)
	require.True(t, strict.Ambiguous)
	require.Nil(t, strict.ConnectionInfo)

	byPort := CheckStatus(snap, StatusQuery{RealIP: "203.0.113.5", Port: "40000", Strict: true}, now)
	require.True(t, byPort.IsActive)
	require.Equal(t, 1, byPort.ConnectionsFound)
	require.Equal(t, "phone", byPort.ConnectionInfo.CommonName)
	require.NotNil(t, byPort.ConnectionInfo.LastRef)

	wrongPort := CheckStatus(snap, StatusQuery{RealIP: "203.0.113.5", Port: "9999"}, now)
	require.False(t, wrongPort.IsActive)
	require.Zero(t, wrongPort.ConnectionsFound)
}

func TestVerifier_InRange(t *testing.T) {
	prod, err := NewVerifier(Config{Range: "10.8.0.0/24"})
	require.NoError(t, err)
	require.True(t, prod.InRange("10.8.0.5"))
	require.False(t, prod.InRange("10.8.1.5"))
	require.False(t, prod.InRange("127.0.0.1"))
	require.False(t, prod.InRange(UnknownIP))

	dev, err := NewVerifier(Config{Range: "10.8.0.0/24", Development: true})
	require.NoError(t, err)
	for _, ip := range []string{"127.0.0.1", "::1", UnknownIP} {
		require.True(t, dev.InRange(ip), ip)
	}
	require.False(t, dev.InRange("192.168.0.2"))

	_, err = NewVerifier(Config{Range: "bogus"})
	require.Error(t, err)
}

func TestVerifier_CheckRemote(t *testing.T) {
	var gotPath, gotQuery, gotPortHeader, gotCache string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotPortHeader = r.Header.Get(PortHeader)
		gotCache = r.Header.Get("Cache-Control")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"isActive":true,"realIp":"203.0.113.5"}`)
	}))
	defer srv.Close()

	v, err := NewVerifier(Config{APIURL: srv.URL + "/", Timeout: time.Second})
	require.NoError(t, err)

	active, err := v.CheckRemote(context.Background(), "203.0.113.5", "1194", true)
	require.NoError(t, err)
	require.True(t, active)
	require.Equal(t, "/api/vpn/check-status", gotPath)
	require.Contains(t, gotQuery, "realIp=203.0.113.5")
	require.Contains(t, gotQuery, "vpnPort=1194")
	require.Contains(t, gotQuery, "strict=true")
	require.Equal(t, "1194", gotPortHeader)
	require.Equal(t, "no-store", gotCache)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.Header.Set("X-Real-IP", "203.0.113.5")
	require.True(t, v.IsConnected(context.Background(), r, false))
}

func TestVerifier_CheckRemoteFailuresDeny(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"isActive":true}`)
		}},
		{name: "malformed body", handler: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}},
		{name: "timeout", handler: func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			fmt.Fprint(w, `{"isActive":true}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			v, err := NewVerifier(Config{APIURL: srv.URL, Timeout: 100 * time.Millisecond})
			require.NoError(t, err)

			active, err := v.CheckRemote(context.Background(), "203.0.113.5", "", false)
			require.Error(t, err)
			require.False(t, active)

			r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
			r.Header.Set("X-Real-IP", "203.0.113.5")
			require.False(t, v.IsConnected(context.Background(), r, true))
		})
	}
}

func TestVerifier_NoRemote(t *testing.T) {
	v, err := NewVerifier(Config{})
	require.NoError(t, err)
	require.Equal(t, DefaultRange, v.Range().String())

	active, err := v.CheckRemote(context.Background(), "203.0.113.5", "", false)
	require.NoError(t, err)
	require.False(t, active)

	inside := httptest.NewRequest(http.MethodGet, "/", nil)
	inside.Header.Set("X-Forwarded-For", "10.8.0.5")
	require.True(t, v.IsConnected(context.Background(), inside, true))

	outside := httptest.NewRequest(http.MethodGet, "/", nil)
	require.False(t, v.IsConnected(context.Background(), outside, false))
}
