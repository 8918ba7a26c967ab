package muduo

import "testing"

func TestInetAddressToIPPort(t *testing.T) {
	v4 := NewInetAddress(8080, true, false)
	if got, want := v4.ToIPPort(), "127.0.0.1:8080"; got != want {
		t.Fatalf("v4 ToIPPort = %q, want %q", got, want)
	}

	v6 := NewInetAddress(8080, true, true)
	if got, want := v6.ToIPPort(), "[::1]:8080"; got != want {
		t.Fatalf("v6 ToIPPort = %q, want %q", got, want)
	}
}

func TestInetAddressWildcard(t *testing.T) {
	addr := NewInetAddress(2007, false, false)
	if got, want := addr.IP(), "0.0.0.0"; got != want {
		t.Fatalf("wildcard IP = %q, want %q", got, want)
	}
	if addr.Port() != 2007 {
		t.Fatalf("port = %d, want 2007", addr.Port())
	}
}

func TestInetAddressFromIP(t *testing.T) {
	addr, err := NewInetAddressFromIP("192.168.1.1", 443)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	if addr.IsIPv6() {
		t.Fatal("192.168.1.1 classified as ipv6")
	}
	if got, want := addr.ToIPPort(), "192.168.1.1:443"; got != want {
		t.Fatalf("ToIPPort = %q, want %q", got, want)
	}

	if _, err := NewInetAddressFromIP("not-an-ip", 1); err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestInetAddressSockaddrRoundTrip(t *testing.T) {
	addr, err := NewInetAddressFromIP("10.0.0.5", 9000)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}

	back := addressFromSockaddr(addr.sockaddr())
	if back.ToIPPort() != addr.ToIPPort() {
		t.Fatalf("round trip = %q, want %q", back.ToIPPort(), addr.ToIPPort())
	}
}
