package vpn

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// Connection is one CLIENT LIST row of the status export.
type Connection struct {
	CommonName     string
	RealAddress    string
	RealIP         string
	RealPort       string
	VirtualAddress string
	ConnectedSince time.Time
}

// Route is one ROUTING TABLE row of the status export.
type Route struct {
	VirtualAddress string
	CommonName     string
	RealAddress    string
	RealIP         string
	LastRef        time.Time
}

// Snapshot is a parsed status export. It is valid for a single lookup only.
type Snapshot struct {
	Connections []Connection
	Routes      []Route
	// UpdatedAt is the export's own timestamp (TIME or Updated row); zero if absent.
	UpdatedAt time.Time
	// ModTime and Size describe the file the snapshot was read from, when known.
	ModTime time.Time
	Size    int64
	// ChangedDuringRead is set when the file's mtime moved while it was read.
	ChangedDuringRead bool
}

type section int

const (
	sectionNone section = iota
	sectionClients
	sectionRoutes
)

// columns maps field names to positions within a data row.
type columns map[string]int

const (
	colCommonName       = "common name"
	colRealAddress      = "real address"
	colVirtualAddress   = "virtual address"
	colConnectedSince   = "connected since"
	colConnectedSinceTT = "connected since (time_t)"
	colLastRef          = "last ref"
	colLastRefTT        = "last ref (time_t)"
)

// Positional defaults for files without header rows.
var (
	// CLIENT_LIST,<cn>,<real>,<virtual>,<v6>,<rx>,<tx>,<since>,<since time_t>,...
	prefixedClientColumns = columns{colCommonName: 0, colRealAddress: 1, colVirtualAddress: 2, colConnectedSince: 6, colConnectedSinceTT: 7}
	// ROUTING_TABLE,<virtual>,<cn>,<real>,<last ref>,<last ref time_t>
	prefixedRouteColumns = columns{colVirtualAddress: 0, colCommonName: 1, colRealAddress: 2, colLastRef: 3, colLastRefTT: 4}
	// <cn>,<real>,<rx>,<tx>,<since>
	plainClientColumns = columns{colCommonName: 0, colRealAddress: 1, colConnectedSince: 4}
	// <virtual>,<cn>,<real>,<last ref>
	plainRouteColumns = columns{colVirtualAddress: 0, colCommonName: 1, colRealAddress: 2, colLastRef: 3}
)

var textTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"Mon Jan _2 15:04:05 2006",
	time.ANSIC,
	time.RFC3339,
}

// ParseStatus reads an OpenVPN status export. Both the prefixed variant
// (status-version 2/3: HEADER,CLIENT_LIST / CLIENT_LIST,...) and the plain
// variant (OpenVPN CLIENT LIST / ROUTING TABLE sections) are understood.
// Textual times without a time_t column are interpreted in loc.
func ParseStatus(r io.Reader, loc *time.Location) (*Snapshot, error) {
	if loc == nil {
		loc = time.Local
	}

	snap := &Snapshot{}
	current := sectionNone

	prefixedClients := prefixedClientColumns
	prefixedRoutes := prefixedRouteColumns
	plainClients := plainClientColumns
	plainRoutes := plainRouteColumns

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch line {
		case "OpenVPN CLIENT LIST", "CLIENT LIST":
			current = sectionClients
			continue
		case "ROUTING TABLE":
			current = sectionRoutes
			continue
		case "GLOBAL STATS", "END":
			current = sectionNone
			continue
		}

		fields := splitFields(line)
		switch fields[0] {
		case "HEADER":
			if len(fields) < 2 {
				continue
			}
			switch fields[1] {
			case "CLIENT_LIST":
				current = sectionClients
				prefixedClients = headerColumns(fields[2:])
			case "ROUTING_TABLE":
				current = sectionRoutes
				prefixedRoutes = headerColumns(fields[2:])
			default:
				current = sectionNone
			}
			continue
		case "TIME":
			snap.UpdatedAt = parseTimeFields(fields[1:], 0, 1, loc)
			continue
		case "Updated":
			snap.UpdatedAt = parseTimeFields(fields[1:], 0, -1, loc)
			continue
		case "TITLE", "GLOBAL_STATS":
			continue
		case "CLIENT_LIST":
			current = sectionClients
			snap.addConnection(fields[1:], prefixedClients, loc)
			continue
		case "ROUTING_TABLE":
			current = sectionRoutes
			snap.addRoute(fields[1:], prefixedRoutes, loc)
			continue
		case "Common Name":
			if current == sectionClients {
				plainClients = headerColumns(fields)
			}
			continue
		case "Virtual Address":
			if current == sectionRoutes {
				plainRoutes = headerColumns(fields)
			}
			continue
		}

		switch current {
		case sectionClients:
			snap.addConnection(fields, plainClients, loc)
		case sectionRoutes:
			snap.addRoute(fields, plainRoutes, loc)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	snap.fillVirtualAddresses()
	return snap, nil
}

// splitFields splits on tabs (status-version 3) or commas.
func splitFields(line string) []string {
	sep := ","
	if strings.Contains(line, "\t") {
		sep = "\t"
	}
	parts := strings.Split(line, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func headerColumns(names []string) columns {
	cols := make(columns, len(names))
	for i, name := range names {
		cols[strings.ToLower(name)] = i
	}
	return cols
}

func (c columns) get(fields []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func (s *Snapshot) addConnection(fields []string, cols columns, loc *time.Location) {
	realAddr := cols.get(fields, colRealAddress)
	ip, port := splitRealAddress(realAddr)
	if ip == "" {
		return
	}
	s.Connections = append(s.Connections, Connection{
		CommonName:     cols.get(fields, colCommonName),
		RealAddress:    realAddr,
		RealIP:         ip,
		RealPort:       port,
		VirtualAddress: cols.get(fields, colVirtualAddress),
		ConnectedSince: parseColumnTime(fields, cols, colConnectedSince, colConnectedSinceTT, loc),
	})
}

func (s *Snapshot) addRoute(fields []string, cols columns, loc *time.Location) {
	realAddr := cols.get(fields, colRealAddress)
	ip, _ := splitRealAddress(realAddr)
	virtual := cols.get(fields, colVirtualAddress)
	if virtual == "" {
		return
	}
	s.Routes = append(s.Routes, Route{
		VirtualAddress: virtual,
		CommonName:     cols.get(fields, colCommonName),
		RealAddress:    realAddr,
		RealIP:         ip,
		LastRef:        parseColumnTime(fields, cols, colLastRef, colLastRefTT, loc),
	})
}

// fillVirtualAddresses completes plain-variant client rows, which carry no
// virtual address, from the routing table row for the same real address.
func (s *Snapshot) fillVirtualAddresses() {
	for i := range s.Connections {
		c := &s.Connections[i]
		if c.VirtualAddress != "" {
			continue
		}
		for _, r := range s.Routes {
			if r.RealAddress == c.RealAddress {
				c.VirtualAddress = r.VirtualAddress
				break
			}
		}
	}
}

// splitRealAddress accepts "1.2.3.4:1194", "udp4:1.2.3.4:1194" and "[v6]:1194".
func splitRealAddress(addr string) (ip, port string) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ""
	}
	if proto, rest, ok := strings.Cut(addr, ":"); ok && (strings.HasPrefix(proto, "udp") || strings.HasPrefix(proto, "tcp")) {
		addr = rest
	}
	if host, p, err := net.SplitHostPort(addr); err == nil {
		return host, p
	}
	if i := strings.LastIndex(addr, ":"); i > 0 {
		return addr[:i], addr[i+1:]
	}
	return addr, ""
}

func parseColumnTime(fields []string, cols columns, textCol, unixCol string, loc *time.Location) time.Time {
	if v := cols.get(fields, unixCol); v != "" {
		if t, ok := parseUnix(v); ok {
			return t
		}
	}
	return parseText(cols.get(fields, textCol), loc)
}

// parseTimeFields parses a TIME/Updated row: fields[textIdx] text, fields[unixIdx] time_t.
func parseTimeFields(fields []string, textIdx, unixIdx int, loc *time.Location) time.Time {
	if unixIdx >= 0 && unixIdx < len(fields) {
		if t, ok := parseUnix(fields[unixIdx]); ok {
			return t
		}
	}
	if textIdx < len(fields) {
		return parseText(fields[textIdx], loc)
	}
	return time.Time{}
}

func parseUnix(v string) (time.Time, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}

func parseText(v string, loc *time.Location) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range textTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
