package util

import "testing"

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "root path", base: "http://localhost:3000", path: "/api/chat", want: "http://localhost:3000/api/chat"},
		{name: "trailing slash", base: "https://example.com/", path: "/api/collaborators", want: "https://example.com/api/collaborators"},
		{name: "absolute path replaces base path", base: "http://h/app/", path: "/api/chat", want: "http://h/api/chat"},
		{name: "query preserved", base: "http://h", path: "/socket.io/?EIO=4&transport=websocket", want: "http://h/socket.io/?EIO=4&transport=websocket"},
		{name: "empty base", base: "", path: "/x", wantErr: true},
		{name: "empty path", base: "http://h", path: "", wantErr: true},
		{name: "bad scheme", base: "ftp://h", path: "/x", wantErr: true},
		{name: "missing host", base: "http://", path: "/x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndpointURL(tt.base, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EndpointURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("EndpointURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := map[string]string{
		"http://h/socket.io/":  "ws://h/socket.io/",
		"https://h/socket.io/": "wss://h/socket.io/",
		"ws://h/x":             "ws://h/x",
	}
	for in, want := range tests {
		got, err := WebSocketURL(in)
		if err != nil {
			t.Fatalf("WebSocketURL(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("WebSocketURL(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := WebSocketURL("ftp://h"); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
