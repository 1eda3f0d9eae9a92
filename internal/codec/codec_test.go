package codec

import (
	"bytes"
	"strings"
	"testing"

	"nodestore/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *domain.NodeDocument {
	doc := domain.NewNodeDocument()
	doc.AddNode(domain.Node{ID: 1, Label: "Intro", Attributes: domain.MustAttributes(`[{"difficulty":"easy"}]`)})
	doc.AddNode(domain.Node{ID: 2, Label: "Loops", Attributes: domain.MustAttributes(`{"level":2,"tags":["for","while"]}`)})
	return doc
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "json"},
		{"json", "json"},
		{"JSON", "json"},
		{"yaml", "yaml"},
		{"yml", "yaml"},
	}
	for _, tt := range tests {
		c, err := ForFormat(tt.format)
		require.NoError(t, err, tt.format)
		assert.Equal(t, tt.want, c.Format())
	}

	_, err := ForFormat("xml")
	assert.True(t, domain.IsValidation(err), "unsupported format should be a validation error")
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := NewJSONCodec()
	var buf bytes.Buffer

	require.NoError(t, c.Export(sampleDocument(), &buf))
	assert.Contains(t, buf.String(), `"label": "Intro"`)

	doc, err := c.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "Loops", doc.Nodes[1].Label)
	assert.True(t, doc.Nodes[1].Attributes.Equal(domain.MustAttributes(`{"tags":["for","while"],"level":2}`)))
}

func TestJSONCodecParse(t *testing.T) {
	c := NewJSONCodec()

	t.Run("missing attributes stay unset", func(t *testing.T) {
		doc, err := c.Parse(strings.NewReader(`{"nodes":[{"label":"bare"}]}`))
		require.NoError(t, err)
		require.Len(t, doc.Nodes, 1)
		assert.True(t, doc.Nodes[0].Attributes.IsZero())
		assert.Equal(t, "[]", doc.Inputs()[0].Attributes.String())
	})

	t.Run("empty document", func(t *testing.T) {
		doc, err := c.Parse(strings.NewReader(`{}`))
		require.NoError(t, err)
		assert.NotNil(t, doc.Nodes)
		assert.Empty(t, doc.Nodes)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := c.Parse(strings.NewReader(`{"nodes":[`))
		assert.True(t, domain.IsValidation(err))
	})
}

func TestYAMLCodecRoundTrip(t *testing.T) {
	c := NewYAMLCodec()
	var buf bytes.Buffer

	require.NoError(t, c.Export(sampleDocument(), &buf))
	assert.Contains(t, buf.String(), "label: Intro")
	assert.Contains(t, buf.String(), "difficulty: easy")

	doc, err := c.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)

	for i, want := range sampleDocument().Nodes {
		assert.Equal(t, want.ID, doc.Nodes[i].ID)
		assert.Equal(t, want.Label, doc.Nodes[i].Label)
		assert.True(t, want.Attributes.Equal(doc.Nodes[i].Attributes),
			"attributes of node %d: want %s, got %s", want.ID, want.Attributes, doc.Nodes[i].Attributes)
	}
}

func TestYAMLCodecParse(t *testing.T) {
	c := NewYAMLCodec()

	t.Run("numeric keys become strings", func(t *testing.T) {
		doc, err := c.Parse(strings.NewReader("nodes:\n  - label: grid\n    attributes:\n      1: one\n      2: two\n"))
		require.NoError(t, err)
		require.Len(t, doc.Nodes, 1)
		assert.True(t, doc.Nodes[0].Attributes.Equal(domain.MustAttributes(`{"1":"one","2":"two"}`)))
	})

	t.Run("missing attributes stay unset", func(t *testing.T) {
		doc, err := c.Parse(strings.NewReader("nodes:\n  - label: bare\n"))
		require.NoError(t, err)
		require.Len(t, doc.Nodes, 1)
		assert.True(t, doc.Nodes[0].Attributes.IsZero())

		inputs := doc.Inputs()
		assert.NoError(t, inputs[0].Validate())
		assert.Equal(t, "[]", string(inputs[0].Attributes))
	})

	t.Run("explicit null attributes are rejected", func(t *testing.T) {
		for _, src := range []string{
			"nodes:\n  - label: empty\n    attributes: null\n",
			"nodes:\n  - label: empty\n    attributes: ~\n",
		} {
			doc, err := c.Parse(strings.NewReader(src))
			require.NoError(t, err, src)
			require.Len(t, doc.Nodes, 1)
			assert.Equal(t, domain.AttributeKindNull, doc.Nodes[0].Attributes.Kind())

			err = doc.Inputs()[0].Validate()
			assert.True(t, domain.IsValidation(err), src)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		doc, err := c.Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, doc.Nodes)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := c.Parse(strings.NewReader("nodes: [\n"))
		assert.True(t, domain.IsValidation(err))
	})
}
