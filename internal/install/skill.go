// Package install provides functions to install recall into AI coding agents.
package install

// SkillMarkdown is the skill definition that teaches AI agents how to use recall.
const SkillMarkdown = `
---
name: recall
description: Retrieval-augmented answers from locally ingested document collections. Searches notes, docs, and runbooks semantically and cites sources.
license: MIT
---

## When to use this skill

Use recall to answer questions from the user's ingested document
collections (notes, handbooks, runbooks, reports). It retrieves
passages by meaning rather than keywords and can generate a cited
answer. Everything runs locally against a SQLite vector store.

## How to use

` + "```bash" + `
recall search "incident response steps"          # Find relevant passages
recall search "error budgets" -C runbooks -m 5   # Pick collection, limit results
recall ask "how do I request time off?"          # Cited answer from the docs
recall collection list                           # See what is ingested
` + "```" + `

### Do

` + "```bash" + `
recall ask "What is the on-call escalation policy?"       # Good: specific question
recall search "quarterly planning process" -C handbook    # Good: targeted collection
recall search "postgres connection limits" -m 3           # Good: limit results
` + "```" + `

### Don't

` + "```bash" + `
recall search "policy"                    # Bad: too vague
recall ask "tell me everything"           # Bad: too broad
` + "```" + `

## Keywords
search, documents, notes, knowledge base, RAG, question answering, semantic search
`

// OpenCodeToolDefinition is the TypeScript tool definition for OpenCode.
const OpenCodeToolDefinition = `
import { tool } from "@opencode-ai/plugin"

const SKILL = ` + "`" + SkillMarkdown + "`" + `

export default tool({
  description: SKILL,
  args: {
    q: tool.schema.string().describe("The question or search query."),
    m: tool.schema.number().default(5).describe("The number of passages to retrieve."),
    a: tool.schema.boolean().default(false).describe("If a cited answer should be generated instead of raw passages."),
  },
  async execute(args) {
    const result = args.a
      ? await Bun.` + "$" + "`" + `recall ask ${args.q} -m ${args.m}` + "`" + `.text()
      : await Bun.` + "$" + "`" + `recall search ${args.q} -m ${args.m}` + "`" + `.text()
    return result.trim()
  },
})
`
