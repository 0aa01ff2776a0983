package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "Campanha PQ|123", Encode("Campanha PQ", "123"))
	assert.Equal(t, "Campanha PQ", Encode("Campanha PQ", ""))
	assert.Equal(t, "123", Encode("", "123"))
	assert.Equal(t, "", Encode("", ""))
	assert.Equal(t, "nome|42", Encode("  nome  ", " 42 "))
}

func TestDecode(t *testing.T) {
	name, id := Decode("Campanha PQ|123")
	assert.Equal(t, "Campanha PQ", name)
	assert.Equal(t, "123", id)

	name, id = Decode("Campanha PQ")
	assert.Equal(t, "Campanha PQ", name)
	assert.Equal(t, "", id)

	name, id = Decode("")
	assert.Equal(t, "", name)
	assert.Equal(t, "", id)

	// only the first separator splits
	name, id = Decode("a|b|c")
	assert.Equal(t, "a", name)
	assert.Equal(t, "b|c", id)

	name, id = Decode(" nome | 42 ")
	assert.Equal(t, "nome", name)
	assert.Equal(t, "42", id)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	name, id := Decode(Encode("Criativo X", "789"))
	assert.Equal(t, "Criativo X", name)
	assert.Equal(t, "789", id)
}
