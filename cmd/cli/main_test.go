package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pep299/research-blog-pipeline/internal/config"
	"github.com/pep299/research-blog-pipeline/internal/pipeline"
)

func TestTopicFromArgs(t *testing.T) {
	assert.Equal(t, "fallback", topicFromArgs(nil, "fallback"))
	assert.Equal(t, "fallback", topicFromArgs([]string{"  "}, "fallback"))
	assert.Equal(t, "History of the transistor", topicFromArgs([]string{"History", "of", "the", "transistor"}, "fallback"))
}

func TestPrintJSONHasFourKeys(t *testing.T) {
	var buf bytes.Buffer
	result := &pipeline.Result{Research: "r", Summary: "s", Blog: "b", Review: "v"}

	require.NoError(t, printJSON(&buf, result))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, result.Map(), decoded)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, "Quantum Computer", &pipeline.Result{
		Research: "research text",
		Summary:  "summary text\n",
		Blog:     "blog text",
		Review:   "review text",
	})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Topic: Quantum Computer\n"))
	for _, section := range []string{"=== Research ===", "=== Summary ===", "=== Blog ===", "=== Review ==="} {
		assert.Contains(t, out, section)
	}
	assert.Less(t, strings.Index(out, "=== Summary ==="), strings.Index(out, "=== Blog ==="))
	assert.Contains(t, out, "summary text\n\n=== Blog ===")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	report := progressPrinter(&buf)

	report(pipeline.Event{Stage: pipeline.StageResearch, Status: pipeline.StatusStarted})
	report(pipeline.Event{Stage: pipeline.StageResearch, Status: pipeline.StatusCompleted, Elapsed: 1500 * time.Millisecond})
	report(pipeline.Event{Stage: pipeline.StageCritique, Status: pipeline.StatusFailed, Err: errors.New("quota")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[1/4] RESEARCH...", lines[0])
	assert.Equal(t, "[1/4] RESEARCH done (1.5s)", lines[1])
	assert.Equal(t, "[4/4] CRITIQUE failed: quota", lines[2])
}

func TestApplyFlags(t *testing.T) {
	t.Cleanup(func() {
		promptsDir, model, verbose = "", "", false
	})
	promptsDir, model, verbose = "/etc/prompts", "gemini-2.5-pro", true

	cfg := &config.Config{GeminiModel: "gemini-2.5-flash"}
	applyFlags(cfg)

	assert.Equal(t, "/etc/prompts", cfg.PromptsDir)
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.True(t, cfg.Verbose)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "blogpipe "+config.Version+"\n", buf.String())
}

func TestRootRejectsArguments(t *testing.T) {
	rootCmd.SetArgs([]string{"unexpected", "args"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.Error(t, rootCmd.Execute())
}
