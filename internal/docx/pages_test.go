package docx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/PrintDrop/internal/testutil"
)

func TestPageCount(t *testing.T) {
	n, err := PageCount(testutil.DOCX(4))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestPageCountMissingProperties(t *testing.T) {
	_, err := PageCount(testutil.DOCX(-1))
	assert.ErrorIs(t, err, ErrNoPageCount)

	_, err = PageCount(testutil.DOCX(0))
	assert.ErrorIs(t, err, ErrNoPageCount)
}

func TestPageCountNotZip(t *testing.T) {
	_, err := PageCount([]byte("plain text"))
	assert.Error(t, err)
}
