package fetch

import (
	"crypto/md5"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// userAgents is the pool one agent is drawn from per request.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/121.0",
}

const sessionCookieChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Identity carries the per-process spoofed identity: the proxy auth
// signature and the session cookie. It is resolved once at startup and
// passed into the gateway, never read from ambient globals by workers.
type Identity struct {
	OrderNo   string
	Signature string
	Timestamp int64
	Cookie    string
	Referer   string
}

// NewIdentity computes the proxy authorization signature
// MD5("orderno=<o>,secret=<s>,timestamp=<t>") and mints a fresh session
// cookie.
func NewIdentity(orderNo, secret, referer string, now time.Time) Identity {
	ts := now.Unix()
	sum := md5.Sum([]byte(fmt.Sprintf("orderno=%s,secret=%s,timestamp=%d", orderNo, secret, ts)))
	return Identity{
		OrderNo:   orderNo,
		Signature: strings.ToUpper(fmt.Sprintf("%x", sum)),
		Timestamp: ts,
		Cookie:    "bid=" + randomString(11),
		Referer:   referer,
	}
}

// ProxyAuthorization renders the Proxy-Authorization header value.
func (id Identity) ProxyAuthorization() string {
	return fmt.Sprintf("sign=%s&orderno=%s&timestamp=%d", id.Signature, id.OrderNo, id.Timestamp)
}

// UserAgent draws a random agent string from the pool.
func UserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

func randomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = sessionCookieChars[rand.IntN(len(sessionCookieChars))]
	}
	return string(b)
}
