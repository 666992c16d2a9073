package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelClassifiesWrappedErrors(t *testing.T) {
	require.Equal(t, "none", Label(nil))
	require.Equal(t, "invalid_argument", Label(fmt.Errorf("%w: empty channel id", ErrInvalidArgument)))
	require.Equal(t, "insufficient_data", Label(fmt.Errorf("%w: 3 rows", ErrInsufficientData)))
	require.Equal(t, "numeric_failure", Label(ErrNumericFailure))
	require.Equal(t, "other", Label(fmt.Errorf("disk on fire")))
}
