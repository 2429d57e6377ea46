package provision

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestProvisionSuccessLogFields(t *testing.T) {
	var buf bytes.Buffer

	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	f := newFixture(t)
	result, err := f.orch.Provision(context.Background(), validRequest())
	require.NoError(t, err)

	var line string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), `"message":"Provisioned organization"`) {
			line = scanner.Text()
		}
	}
	require.NotEmpty(t, line)

	// each id appears exactly once on the event
	require.Equal(t, 1, strings.Count(line, `"user_id":`))
	require.Equal(t, 1, strings.Count(line, `"org_id":`))
	require.Equal(t, 1, strings.Count(line, `"key_id":`))

	require.Contains(t, line, result.UserID.String())
	require.Contains(t, line, result.OrganizationID.String())
	require.Contains(t, line, result.APIKey.KeyID.String())
	require.NotContains(t, line, result.APIKey.RawKey)
}
