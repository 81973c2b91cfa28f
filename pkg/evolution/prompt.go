package evolution

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alantheprice/director/pkg/genome"
	"github.com/alantheprice/director/pkg/llm"
)

const systemPrompt = "You are a deterministic AI that outputs ONLY valid JSON. No markdown."

// BuildMessages asks the model for a balanced genome for g.Mode given m.
func BuildMessages(g genome.Genome, m Metrics, targetMin, targetMax float64) []llm.Message {
	current, _ := json.MarshalIndent(g, "", "  ")
	wr := m.WinRate()

	var b strings.Builder
	b.WriteString("You are a game evolution director.\n\n")
	b.WriteString("CURRENT CONFIGURATION:\n")
	fmt.Fprintf(&b, "- Mode: %s\n", g.Mode)
	fmt.Fprintf(&b, "- Genome: %s\n\n", current)

	b.WriteString("LATEST SIMULATION METRICS:\n")
	fmt.Fprintf(&b, "- Win Rate: %.2f\n", wr)
	fmt.Fprintf(&b, "- Total Collected Items: %g\n", m.Float("total_collected"))
	fmt.Fprintf(&b, "- Collection Efficiency: %.2f (items collected vs total possible)\n", m.CollectEfficiency(g.Rules.TargetCount))
	fmt.Fprintf(&b, "- Stuck Events: %g\n", m.Float("stuck_events"))
	fmt.Fprintf(&b, "- Timeouts: %g\n\n", m.Float("timeouts"))

	b.WriteString("RULES:\n")
	fmt.Fprintf(&b, "1. Keep \"mode\" as %q. The mode cannot change.\n", g.Mode)
	fmt.Fprintf(&b, "2. Target win rate: %.2f - %.2f.\n", targetMin, targetMax)
	b.WriteString("3. Use obstacles.minScale and obstacles.maxScale to control map density.\n\n")

	b.WriteString("GUIDELINES:\n")
	switch {
	case wr >= 1:
		b.WriteString("- Win rate is 1.0, the game is trivial. Make it significantly HARDER:\n")
		b.WriteString("  increase rules.enemySpeed, decrease rules.timeLimit, increase obstacles.count or rules.trapChance.\n")
	case wr > targetMax:
		b.WriteString("- Win rate is above the target. Make it harder:\n")
		b.WriteString("  increase rules.enemySpeed, increase obstacles.count or maxScale, decrease rules.timeLimit.\n")
	case wr < targetMin:
		b.WriteString("- Win rate is below the target. Make it easier:\n")
		b.WriteString("  decrease rules.enemySpeed, increase rules.powerUpChance.\n")
		if m.Float("timeouts") > 0 {
			b.WriteString("- There were timeouts: increase rules.timeLimit.\n")
		}
		if m.CollectEfficiency(g.Rules.TargetCount) > 0.7 {
			b.WriteString("- Collection efficiency is high: only add a little more time.\n")
		}
		if m.Float("stuck_events") > 0 {
			b.WriteString("- The agent got stuck: decrease obstacles.count or obstacles.maxScale.\n")
		}
	default:
		b.WriteString("- Win rate is inside the target. Make only small adjustments.\n")
	}

	b.WriteString("\nReturn ONLY one JSON object, no comments and no text outside it:\n")
	b.WriteString(`{"report": "analysis of the metrics and the changes made", "new_genome": { ... }}`)
	b.WriteString("\n")

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}
