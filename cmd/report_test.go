package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/legislator-panel/internal/career"
	"github.com/sells-group/legislator-panel/internal/model"
)

func TestSummarizeLegislatures(t *testing.T) {
	records := testRecords()
	records = append(records, model.PersonLegislature{PersonID: 3, Legislature: "2008-2012", DiedInOffice: true})

	got := summarizeLegislatures(records)
	require.Len(t, got, 2)
	assert.Equal(t, legislatureSummary{legislature: "2008-2012", mandates: 2, switchers: 1, deaths: 1}, got[0])
	assert.Equal(t, legislatureSummary{legislature: "2012-2016", mandates: 1}, got[1])
}

func TestRuleCounts(t *testing.T) {
	got := ruleCounts(testAudit("r"))
	assert.Equal(t, []ruleCount{
		{Rule: "reference_gap", Count: 2},
		{Rule: "party_override", Count: 1},
	}, got)
	assert.Empty(t, ruleCounts(nil))
}

func TestShare(t *testing.T) {
	assert.Equal(t, "50.0%", share(1, 2))
	assert.Equal(t, "-", share(0, 0))
}

func TestRenderReport(t *testing.T) {
	run := &model.Run{ID: "run-1", Source: "profiles.zip", Status: model.RunStatusComplete, Documents: 2, Legislatures: 2, PersonYears: 8}
	pairs := career.NearDuplicates(testRecords(), 0.9)

	var buf bytes.Buffer
	renderReport(&buf, run, testRecords(), testAudit(run.ID), pairs)
	out := buf.String()

	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "profiles.zip")
	assert.Contains(t, out, "Party switching by legislature")
	assert.Contains(t, out, "2008-2012")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "reference_gap")
	assert.Contains(t, out, "Near-duplicate names for review")
	assert.Contains(t, out, "POP Ion")
	assert.Contains(t, out, "POPA Ion")
}

func TestRenderNearDuplicates_None(t *testing.T) {
	var buf bytes.Buffer
	renderNearDuplicates(&buf, nil)
	assert.Contains(t, buf.String(), "(none)")
}
