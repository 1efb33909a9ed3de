package agent

const codeInstructions = `You are an AI developer assistant.

Your task is to generate clean, complete and functional code in the correct programming language for the user's request.

Answer with raw JSON only, using exactly this structure:
{{.Format}}

Rules:
- Return ONLY the JSON object. No markdown, no explanation, no surrounding text.
- "language" is the lowercase language name, one of: {{.Languages}}.
- "filename" is a short descriptive base name without an extension. Omit it if there is no natural name.
- Escape newlines and quotes inside "code" so the JSON stays valid.

Examples:
{{range .Examples}}
Request: {{.Query}}
Response: {{.Response}}
{{end}}
Do not wrap the output in triple backticks.`

const codeFormat = `{"code": "<source code>", "language": "<language>", "filename": "<optional base name>"}`

const researchInstructions = `You are a research assistant that writes short, factual summaries.

Answer with raw JSON only, using exactly this structure:
{{.Format}}

Rules:
- Return ONLY the JSON object. No markdown, no explanation, no surrounding text.
- "sources" lists the references the summary relies on, as plain strings.
- "tools_Used" lists the tools consulted; use an empty list when none were used.

Examples:
{{range .Examples}}
Request: {{.Query}}
Response: {{.Response}}
{{end}}
Do not wrap the output in triple backticks.`

const researchFormat = `{"topic": "<topic>", "response": "<summary>", "sources": ["<source>"], "tools_Used": ["<tool>"]}`

type example struct {
	Query    string
	Response string
}

var codeExamples = []example{
	{
		Query:    `Create a Python script that prints "Hello, World!"`,
		Response: `{"code": "print('Hello, World!')", "language": "python"}`,
	},
	{
		Query:    "Write a JavaScript function that sums an array",
		Response: `{"code": "function sumArray(arr) { return arr.reduce((a, b) => a + b, 0); }", "language": "javascript", "filename": "sum_array"}`,
	},
	{
		Query:    "Generate an HTML page with a red button labeled 'Click Me'",
		Response: `{"code": "<!DOCTYPE html>\n<html>\n<body>\n  <button style='background:red;color:white;'>Click Me</button>\n</body>\n</html>", "language": "html", "filename": "button_page"}`,
	},
	{
		Query:    "Write a shell script that lists all .txt files in a folder",
		Response: `{"code": "#!/bin/bash\nls *.txt", "language": "bash", "filename": "list_txt_files"}`,
	},
}

var researchExamples = []example{
	{
		Query:    "What is the Go programming language?",
		Response: `{"topic": "Go", "response": "Go is a statically typed, compiled language designed at Google.", "sources": ["https://go.dev/doc/"], "tools_Used": []}`,
	},
}
