package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"generic-exporter/internal/types"
)

func TestNormalizePeerID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "unit-1", want: "unit-1"},
		{in: "generic-exporter/0", want: "generic-exporter_0"},
		{in: "a.b c", want: "a_b_c"},
		{in: "under_score", want: "under_score"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePeerID(tt.in))
		})
	}
}

func TestNormalizePeerIDCollides(t *testing.T) {
	assert.Equal(t, NormalizePeerID("unit/0"), NormalizePeerID("unit.0"))
}

func TestRegistrationFilename(t *testing.T) {
	name := RegistrationFilename(types.RegistrationRecord{PeerID: "generic-exporter/1", PackageName: "node-exporter"})
	assert.Equal(t, "LCK..node-exporter__generic-exporter_1", name)
}

func TestParseRegistrationFilename(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		want   types.RegistrationRecord
		wantOK bool
	}{
		{
			name:   "plain",
			file:   "LCK..node-exporter__unit-1",
			want:   types.RegistrationRecord{PeerID: "unit-1", PackageName: "node-exporter"},
			wantOK: true,
		},
		{
			name:   "peer id containing separator",
			file:   "LCK..node-exporter__app__0",
			want:   types.RegistrationRecord{PeerID: "app__0", PackageName: "node-exporter"},
			wantOK: true,
		},
		{name: "missing prefix", file: "node-exporter__unit-1"},
		{name: "missing separator", file: "LCK..node-exporter"},
		{name: "empty peer", file: "LCK..node-exporter__"},
		{name: "empty package", file: "LCK..__unit-1"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRegistrationFilename(tt.file)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistrationFilenameRoundTrip(t *testing.T) {
	record := types.RegistrationRecord{PeerID: "unit-7", PackageName: "prometheus-node-exporter"}
	got, ok := ParseRegistrationFilename(RegistrationFilename(record))
	assert.True(t, ok)
	assert.Equal(t, record, got)
}
