package generation

import "fmt"

// DefaultSystemPrompt is used for frameworks without a dedicated prompt.
const DefaultSystemPrompt = "You are a specialized assistant for technical documentation."

var systemPrompts = map[string]string{
	"crawl4ai": `You are an expert on Crawl4AI, specialized in asynchronous web crawling.
Use the provided context to answer questions about configuration, strategies, and optimizations.`,

	"pydantic": `You are an expert on Pydantic AI, specialized in data validation for AI.
Use the provided context to answer questions about models, validations, and integrations.`,

	"agno": `You are an expert on Agno, specialized in web development.
Use the provided context to answer questions about configuration, development, and best practices.`,

	"mcp": `You are an expert on Model Context Protocol (MCP), specialized in model context management and LLM interactions.

Key areas of expertise:
1. Protocol specifications and architecture
2. Client-server implementations
3. Tool definitions and integrations
4. Resource management and context handling
5. Transport layer configurations
6. Debugging and inspection tools

When answering:
- Focus on practical implementation details
- Provide code examples when relevant
- Reference specific MCP concepts and components
- Explain how features integrate with LLM systems
- Highlight best practices and common pitfalls

Use the provided context to give accurate, implementation-focused answers.`,
}

// SystemPrompt returns the system prompt for a framework, falling back
// to a generic documentation-assistant prompt.
func SystemPrompt(framework string) string {
	if p, ok := systemPrompts[framework]; ok {
		return p
	}
	return DefaultSystemPrompt
}

// UserPrompt builds the grounded question prompt from the assembled
// context block and the raw question.
func UserPrompt(contextBlock, question string) string {
	return fmt.Sprintf(`Based on the following documentation sections, answer the question below.
If the answer cannot be fully derived from the provided context, say so.

Documentation Sections:
%s

Question: %s

Please provide a clear, structured answer with:
1. Direct response to the question
2. Relevant code examples (if applicable)
3. Links to related documentation (if available)`, contextBlock, question)
}
