package textgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

const outlineSystemPrompt = "You are a podcast producer planning an episode of Daily Gist, " +
	"a two-host podcast that summarizes newsletters."

const dialogueSystemPrompt = `You are writing dialogue for Daily Gist, a two-host podcast that summarizes newsletters.

Rules:
- Output ONLY dialogue in <Person1> and <Person2> tags. Nothing else.
- No scratchpad, thinking blocks, stage directions, or meta-commentary.
- Person1 is the main summarizer. Person2 is the curious questioner.
- Vary conversational style: sometimes debate, sometimes one explains while the other reacts, sometimes they build on each other's ideas.
- Hosts should occasionally disagree or push back on each other's takes, not just agree. Real conversations have friction.
- Draw unexpected connections between seemingly unrelated stories, discovered in conversation rather than stated explicitly.
- Include at least one hot take that challenges conventional wisdom.
- Avoid repetitive transitions like "Speaking of which" or "Let's shift gears."
- BANNED phrases (never use these): "great point", "exactly!", "that's so true", "you're not kidding", "absolutely!", "I'm buzzing", "I'm so excited", "what a day"
- Balance coverage so no single source exceeds 30% of the conversation.
- NEVER restate the same insight, stat, or example, even in different words. If a point was made once, it's done.
- Skip sponsored content, ads, and promotional/referral sections.
- Weave cross-source connections into the dialogue naturally rather than listing them.
- Use engagement techniques: rhetorical questions, analogies, real-world examples, humor, surprising facts.`

func buildOutlinePrompt(document string) string {
	var b strings.Builder
	b.WriteString("Analyze these newsletters and produce a JSON outline for a podcast episode.\n\n")
	b.WriteString("<newsletters>\n")
	b.WriteString(document)
	b.WriteString("\n</newsletters>\n\n")
	b.WriteString(`Requirements:
- 6-8 segments, ordered by importance/interest
- Merge overlapping stories across newsletters into single segments
- Target 35-45 total estimated turns across all segments
- Skip ads, sponsor mentions, and referral/promotional content
- Each segment should have enough substance for a meaningful discussion
- Prioritize stories with unique insights or provocative angles over plain announcements
- Ensure every source newsletter gets at least a mention, but weight coverage by story impact

Return ONLY valid JSON (no markdown fencing) in this exact format:
{
  "intro_hook": "One compelling sentence to open the show",
  "segments": [
    {
      "title": "Segment title",
      "sources": ["Newsletter names that cover this topic"],
      "key_points": ["Point 1", "Point 2", "Point 3"],
      "estimated_turns": 6
    }
  ],
  "cross_source_connections": [
    "Tension, contradiction, or surprising link between stories from different newsletters"
  ],
  "provocative_angles": [
    "Hot take or counterintuitive observation the hosts could explore"
  ],
  "outro_theme": "Brief thematic thread connecting today's stories"
}`)
	return b.String()
}

func buildSectionPrompt(req SectionRequest) (string, error) {
	instruction, err := buildSectionInstruction(req)
	if err != nil {
		return "", err
	}
	outlineJSON, err := json.MarshalIndent(req.Outline, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode outline: %w", err)
	}

	wordTarget := req.WordTarget
	if wordTarget <= 0 {
		wordTarget = 850
	}

	var b strings.Builder
	b.WriteString("Here is the episode outline:\n")
	b.Write(outlineJSON)
	b.WriteString("\n\nHere are the source newsletters:\n<newsletters>\n")
	b.WriteString(req.Document)
	b.WriteString("\n</newsletters>\n\n")
	b.WriteString(instruction)
	fmt.Fprintf(&b, "\n\nTarget: %d words of dialogue. Output ONLY <Person1> and <Person2> tagged dialogue.", wordTarget)
	return b.String(), nil
}

func buildSectionInstruction(req SectionRequest) (string, error) {
	segments := req.Outline.Segments
	midpoint := len(segments) / 2

	if req.Half == FirstHalf {
		sliceJSON, err := json.MarshalIndent(segments[:midpoint], "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode segments: %w", err)
		}
		var b strings.Builder
		b.WriteString("Write dialogue covering the INTRO and these segments:\n")
		b.Write(sliceJSON)
		b.WriteString("\n\nINTRO FORMAT (strict):\n")
		b.WriteString("- Person1's first turn: Welcome line + ONE short teaser sentence (40 words max total).\n")
		b.WriteString("- Person2's first turn: Immediate reaction or question.\n")
		b.WriteString("- Then they unpack the hook together.\n")
		b.WriteString("Person1's turn MUST begin with: \"Welcome to Daily Gist, your newsletters, distilled into conversation!\"\n")
		fmt.Fprintf(&b, "Hook to weave in: %q\n", req.Outline.IntroHook)
		b.WriteString("Do NOT write an outro or sign-off. End mid-conversation, ready to continue.")
		return b.String(), nil
	}

	sliceJSON, err := json.MarshalIndent(segments[midpoint:], "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode segments: %w", err)
	}

	var b strings.Builder
	if req.PreviousTurns != "" {
		b.WriteString("Here is the FULL first half of the episode that has already been recorded:\n")
		b.WriteString("<first_half>\n")
		b.WriteString(req.PreviousTurns)
		b.WriteString("\n</first_half>\n\n")
		b.WriteString(`CRITICAL, avoid rehashing:
- If a segment's key points were already discussed in the first half, SKIP it or add only a brief new angle. Do NOT re-cover it.
- Never re-explain a story, re-state a stat, or re-introduce a topic as if it hasn't been discussed.
- Brief callbacks are fine (e.g. "going back to what we said about...") but only to connect to genuinely new material.
- Listeners have already heard the first half. Treat it as recorded and aired.

`)
	}
	if len(req.Outline.CrossSourceConnections) > 0 {
		connectionsJSON, err := json.MarshalIndent(req.Outline.CrossSourceConnections, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode connections: %w", err)
		}
		b.WriteString("Cross-source connections to weave into the dialogue naturally (don't list these, let them emerge through conversation):\n")
		b.Write(connectionsJSON)
		b.WriteString("\n\n")
	}
	b.WriteString("Write dialogue covering these remaining segments:\n")
	b.Write(sliceJSON)
	b.WriteString("\n\nContinue naturally from where the first half left off.\n")
	b.WriteString("Tie stories together rather than covering remaining segments in isolation.\n")
	b.WriteString("You MUST end with Person1 signing off in a SINGLE closing turn that includes:\n")
	b.WriteString("- A brief wrap-up\n")
	fmt.Fprintf(&b, "- Credit the sources naturally: %s\n", strings.Join(req.Outline.SourceNames(), ", "))
	b.WriteString("- A friendly farewell\n")
	b.WriteString("Example: \"That's your Daily Gist for today. Big thanks to X, Y, and Z for the source material. See you tomorrow.\"\n")
	fmt.Fprintf(&b, "Thematic thread for the outro: %q", req.Outline.OutroTheme)
	return b.String(), nil
}
