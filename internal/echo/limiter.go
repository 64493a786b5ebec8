package echo

import (
	"net"
	"net/http"
	"sync"
)

// connLimiter caps concurrent connections per client IP and in total.
// A zero limit disables that cap.
type connLimiter struct {
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
	mu       sync.Mutex
}

func newConnLimiter(maxPerIP, maxTotal int) *connLimiter {
	return &connLimiter{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// add reserves a slot for ip and reports whether one was free.
func (cl *connLimiter) add(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.maxTotal > 0 && cl.total >= cl.maxTotal {
		return false
	}
	if cl.maxPerIP > 0 && cl.perIP[ip] >= cl.maxPerIP {
		return false
	}
	cl.perIP[ip]++
	cl.total++
	return true
}

// remove releases a slot taken by add.
func (cl *connLimiter) remove(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	n, ok := cl.perIP[ip]
	if !ok {
		return
	}
	cl.total--
	if n <= 1 {
		delete(cl.perIP, ip)
		return
	}
	cl.perIP[ip] = n - 1
}

func (cl *connLimiter) count() (total, ips int) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.total, len(cl.perIP)
}

// clientIP returns the peer address of r. Forwarding headers are ignored.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
