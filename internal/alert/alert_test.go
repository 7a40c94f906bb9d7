package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Rule
		wantErr bool
	}{
		{
			name: "price rule",
			body: `{"kind":"price","symbol":"BTCUSDT","direction":"above","threshold":50000}`,
			want: Rule{Kind: KindPrice, Symbol: "btcusdt", Direction: Above, Threshold: 50000},
		},
		{
			name: "string threshold",
			body: `{"kind":"price","symbol":"ethusdt","threshold":"2500.5"}`,
			want: Rule{Kind: KindPrice, Symbol: "ethusdt", Direction: Above, Threshold: 2500.5},
		},
		{
			name: "zscore rule below",
			body: `{"kind":"zscore","symbol":"btcusdt","symbol2":"ethusdt","direction":"below","threshold":-2}`,
			want: Rule{Kind: KindZScore, Symbol: "btcusdt", Symbol2: "ethusdt", Direction: Below, Threshold: -2},
		},
		{name: "invalid json", body: `{"kind":`, wantErr: true},
		{name: "missing threshold", body: `{"kind":"price","symbol":"btcusdt"}`, wantErr: true},
		{name: "boolean threshold", body: `{"kind":"price","symbol":"btcusdt","threshold":true}`, wantErr: true},
		{name: "unknown kind", body: `{"kind":"volume","symbol":"btcusdt","threshold":1}`, wantErr: true},
		{name: "price without symbol", body: `{"kind":"price","threshold":1}`, wantErr: true},
		{name: "zscore without symbol2", body: `{"kind":"zscore","symbol":"btcusdt","threshold":1}`, wantErr: true},
		{name: "bad direction", body: `{"kind":"price","symbol":"btcusdt","direction":"sideways","threshold":1}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRule([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryAddRemove(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.Rules())

	rule := reg.Add(Rule{Kind: KindPrice, Symbol: "btcusdt", Direction: Above, Threshold: 100})
	assert.NotEmpty(t, rule.ID)
	assert.NotZero(t, rule.CreatedAt)
	require.Len(t, reg.Rules(), 1)

	assert.False(t, reg.Remove("missing"))
	assert.True(t, reg.Remove(rule.ID))
	assert.Empty(t, reg.Rules())

	reg.Add(Rule{Kind: KindPrice, Symbol: "btcusdt", Threshold: 1})
	reg.Add(Rule{Kind: KindPrice, Symbol: "ethusdt", Threshold: 2})
	assert.Equal(t, 2, reg.Clear())
	assert.Empty(t, reg.Rules())
	assert.Zero(t, reg.Clear())
}

func TestEvaluate(t *testing.T) {
	reg := NewRegistry()
	above := reg.Add(Rule{Kind: KindPrice, Symbol: "btcusdt", Direction: Above, Threshold: 100})
	reg.Add(Rule{Kind: KindPrice, Symbol: "btcusdt", Direction: Below, Threshold: 90})
	zrule := reg.Add(Rule{Kind: KindZScore, Symbol: "btcusdt", Symbol2: "ethusdt", Direction: Above, Threshold: 2})

	events := reg.Evaluate([]Observation{
		{Kind: KindPrice, Symbol: "btcusdt", Value: 105},
		{Kind: KindZScore, Symbol: "btcusdt", Symbol2: "ethusdt", Value: 1.5},
	})
	require.Len(t, events, 1)
	assert.Equal(t, above.ID, events[0].Rule.ID)
	assert.Equal(t, 105.0, events[0].Value)
	assert.NotZero(t, events[0].FiredAt)

	// the z-score rule needs the exact ordered pair
	events = reg.Evaluate([]Observation{
		{Kind: KindZScore, Symbol: "ethusdt", Symbol2: "btcusdt", Value: 3},
	})
	assert.Empty(t, events)

	events = reg.Evaluate([]Observation{
		{Kind: KindZScore, Symbol: "btcusdt", Symbol2: "ethusdt", Value: 3},
	})
	require.Len(t, events, 1)
	assert.Equal(t, zrule.ID, events[0].Rule.ID)

	// thresholds are strict
	events = reg.Evaluate([]Observation{
		{Kind: KindPrice, Symbol: "btcusdt", Value: 100},
	})
	assert.Empty(t, events)
}
