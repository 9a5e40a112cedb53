package proxy

import (
	"testing"

	"matchgate/resolver"
)

func TestTransformRequestURI(t *testing.T) {
	ep := resolver.Resolved{Host: "game-7.example.net", Port: 7777}
	tests := []struct {
		name     string
		residual string
		query    string
		want     string
	}{
		{name: "path and query", residual: "lobby/join", query: "a=1", want: "http://game-7.example.net:7777/lobby/join?a=1"},
		{name: "empty residual no double slash", residual: "", query: "a=1", want: "http://game-7.example.net:7777/?a=1"},
		{name: "leading slash not doubled", residual: "/state", query: "", want: "http://game-7.example.net:7777/state"},
		{name: "nested segments preserved", residual: "lobby/123/chat", query: "", want: "http://game-7.example.net:7777/lobby/123/chat"},
		{name: "query copied verbatim", residual: "join", query: "a=1&b=x%20y", want: "http://game-7.example.net:7777/join?a=1&b=x%20y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformRequestURI(tt.residual, tt.query, ep)
			if got.String() != tt.want {
				t.Errorf("URI mismatch\n got=%#v\nwant=%#v", got.String(), tt.want)
			}
		})
	}
}
