package vpn

import (
	"context"
	"time"
)

// Freshness windows for deciding whether a listed connection is live.
const (
	LastRefWindow        = 15 * time.Second
	ConnectedSinceWindow = 30 * time.Second
	FileOnlyWindow       = 15 * time.Second
)

// PortLookup is the result of matching a client IP against the client list.
type PortLookup struct {
	IP             string  `json:"ip"`
	Port           *string `json:"port"`
	CommonName     string  `json:"commonName,omitempty"`
	VirtualAddress string  `json:"virtualAddress,omitempty"`
	Found          bool    `json:"found"`
	Message        string  `json:"message,omitempty"`
}

// LookupPeer returns the first client-list entry whose real IP equals ip.
func (s *Snapshot) LookupPeer(ip string) PortLookup {
	for _, c := range s.Connections {
		if c.RealIP != ip {
			continue
		}
		port := c.RealPort
		return PortLookup{
			IP:             ip,
			Port:           &port,
			CommonName:     c.CommonName,
			VirtualAddress: c.VirtualAddress,
			Found:          true,
		}
	}
	return PortLookup{IP: ip, Found: false, Message: "No se encontró conexión VPN activa para esta IP"}
}

// LookupPeerByIP reads src and matches ip. A well-formed file without a
// match is not an error; a missing file is ErrStatusLogMissing.
func LookupPeerByIP(ctx context.Context, src PeerSource, ip string) (PortLookup, error) {
	snap, err := src.Snapshot(ctx)
	if err != nil {
		return PortLookup{IP: ip}, err
	}
	return snap.LookupPeer(ip), nil
}

// StatusQuery selects the connections CheckStatus considers.
type StatusQuery struct {
	RealIP string
	// Port narrows the match to one real port (the client's X-VPN-Port).
	Port string
	// Strict refuses to pick between several live connections when no port is given.
	Strict bool
}

// ConnectionInfo describes the connection that made a status report active.
type ConnectionInfo struct {
	CommonName     string  `json:"commonName"`
	RealAddress    string  `json:"realAddress"`
	VirtualAddress string  `json:"virtualAddress"`
	ConnectedSince string  `json:"connectedSince"`
	LastRef        *string `json:"lastRef"`
}

// PeerSummary is a compact listing entry used in report diagnostics.
type PeerSummary struct {
	CommonName     string `json:"commonName"`
	VirtualAddress string `json:"virtualAddress"`
	Port           string `json:"port"`
	Active         bool   `json:"active"`
}

// StatusReport is the check-status response body.
type StatusReport struct {
	IsActive          bool            `json:"isActive"`
	RealIP            string          `json:"realIp"`
	ConnectionInfo    *ConnectionInfo `json:"connectionInfo"`
	CheckedAt         string          `json:"checkedAt"`
	FileLastModified  string          `json:"fileLastModified,omitempty"`
	FileAgeSeconds    int64           `json:"fileAgeSeconds"`
	FileUpdatedAt     string          `json:"fileUpdatedAt,omitempty"`
	FileChanged       bool            `json:"fileChangedDuringRead"`
	ConnectionsFound  int             `json:"connectionsFound"`
	ActiveConnections int             `json:"activeConnectionsCount"`
	Ambiguous         bool            `json:"ambiguous"`
	Connections       []PeerSummary   `json:"connectionsFromIp"`
}

// CheckStatus decides whether ip holds a live connection in snap at now.
//
// A listed connection is live when its routing Last Ref is within
// LastRefWindow; lacking Last Ref, when Connected Since is within
// ConnectedSinceWindow and the export itself was updated within the same
// window; lacking both, when the export was updated within FileOnlyWindow.
func CheckStatus(snap *Snapshot, q StatusQuery, now time.Time) StatusReport {
	report := StatusReport{
		RealIP:      q.RealIP,
		CheckedAt:   now.UTC().Format(time.RFC3339),
		Connections: []PeerSummary{},
	}

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = snap.ModTime
	}
	fileAge := time.Duration(1<<63 - 1)
	if !updatedAt.IsZero() {
		fileAge = now.Sub(updatedAt)
		report.FileUpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	}
	if !snap.ModTime.IsZero() {
		report.FileLastModified = snap.ModTime.UTC().Format(time.RFC3339)
		report.FileAgeSeconds = int64(now.Sub(snap.ModTime) / time.Second)
	}
	report.FileChanged = snap.ChangedDuringRead

	lastRefs := make(map[string]time.Time)
	for _, r := range snap.Routes {
		if r.RealIP == q.RealIP && !r.LastRef.IsZero() {
			lastRefs[r.VirtualAddress] = r.LastRef
		}
	}

	var first *ConnectionInfo
	for _, c := range snap.Connections {
		if c.RealIP != q.RealIP {
			continue
		}
		if q.Port != "" && c.RealPort != q.Port {
			continue
		}
		report.ConnectionsFound++

		lastRef, hasLastRef := lastRefs[c.VirtualAddress]
		var live bool
		switch {
		case hasLastRef:
			live = now.Sub(lastRef) <= LastRefWindow
		case !c.ConnectedSince.IsZero():
			live = now.Sub(c.ConnectedSince) <= ConnectedSinceWindow && fileAge <= ConnectedSinceWindow
		default:
			live = fileAge <= FileOnlyWindow
		}

		report.Connections = append(report.Connections, PeerSummary{
			CommonName:     c.CommonName,
			VirtualAddress: c.VirtualAddress,
			Port:           c.RealPort,
			Active:         live,
		})
		if !live {
			continue
		}
		report.ActiveConnections++
		if first == nil {
			info := &ConnectionInfo{
				CommonName:     c.CommonName,
				RealAddress:    c.RealAddress,
				VirtualAddress: c.VirtualAddress,
			}
			if !c.ConnectedSince.IsZero() {
				info.ConnectedSince = c.ConnectedSince.UTC().Format(time.RFC3339)
			}
			if hasLastRef {
				ref := lastRef.UTC().Format(time.RFC3339)
				info.LastRef = &ref
			}
			first = info
		}
	}

	report.Ambiguous = q.Strict && q.Port == "" && report.ActiveConnections > 1
	if first != nil && !report.Ambiguous {
		report.IsActive = true
		report.ConnectionInfo = first
	}
	return report
}
