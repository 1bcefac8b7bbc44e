package extract

import (
	"strings"

	"github.com/chengzr01/jobscout/internal/llm"
)

// exampleInput and exampleOutput form the single worked example included in
// every extraction prompt.
const (
	exampleInput  = "I want a software engineer role at Google."
	exampleOutput = "{company name: Google, job title: Software Engineer, location: None, level: None, requirements: None}"
)

// BuildPrompt constructs the outbound message sequence for one extraction:
// a system instruction scoped to the currently-missing keys, followed by the
// full accumulated dialogue history.
func BuildPrompt(history []llm.Message, missingKeys []string) []llm.Message {
	var sb strings.Builder
	sb.WriteString("You are an agent that helps people find jobs of their interest. ")
	sb.WriteString("You should seek for the following information provided by user: ")
	sb.WriteString(strings.Join(missingKeys, ", "))
	sb.WriteString(".\n")

	sb.WriteString("The results should be displayed in the following format:\n{")
	for i, key := range missingKeys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key)
		sb.WriteString(": xxx")
	}
	sb.WriteString("}\n")
	sb.WriteString("If an information is missing, xxx should be 'None'.\n")
	sb.WriteString("Do not repeat the question. Only return the output dictionary.\n")

	sb.WriteString("Example input: ")
	sb.WriteString(exampleInput)
	sb.WriteString("\nExample output: ")
	sb.WriteString(exampleOutput)

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: sb.String()})
	messages = append(messages, history...)
	return messages
}
