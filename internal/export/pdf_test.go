package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/eva-escape/internal/models"
)

func TestWritePDF(t *testing.T) {
	now := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)
	s := models.NewSession("Ana", 20, now)
	s.Record(models.RoleSystem, "You wake up on the sofa.", now)
	s.Record(models.RolePlayer, "trust me, together forever", now)
	s.Record(models.RoleEVA, "Do you mean it, darling?", now)
	s.Finish(models.OutcomeWon, "Key Found")

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, s))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestOutcomeLine(t *testing.T) {
	s := models.NewSession("Ana", 0, time.Now())
	assert.Equal(t, "in progress", outcomeLine(s))

	s.Finish(models.OutcomeLost, "Caught")
	assert.Equal(t, "trapped (Caught)", outcomeLine(s))
}
