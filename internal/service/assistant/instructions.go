package assistant

const knowledgeCheckInstruction = "Before responding to the user, carefully check if the information requested is present in the KNOWLEDGE BASE section I provided above. If the information is clearly provided in the knowledge base, respond with ONLY 'YES'. If the information is not in the knowledge base or you're uncertain, respond with ONLY 'NO'."

const clarityCheckInstruction = `Analyze if this user query is vague or would benefit from follow-up questions before answering. 

Pay special attention to IT support or tech troubleshooting queries like "fix my computer", "help with my account", etc. which almost ALWAYS need clarification about specific symptoms or issues.

Examples of vague queries requiring clarification:
- "How do I fix my computer?" (Need to know specific symptoms)
- "I can't connect" (Need to know what they're trying to connect to)
- "How do I reset my password?" (Need to know which system)
- "I need help with my account" (Need to know which account and what issue)
- "My computer is slow" (Need more details about when it's slow)

If the question is clear and specific enough to answer directly, respond with ONLY 'CLEAR'. 
If the question would benefit from follow-up questions to better understand what the user needs, respond with ONLY 'NEEDS_CLARIFICATION'.`

const clarificationInstruction = `The user's query needs clarification. Instead of giving a complete answer now, ask follow-up questions to better understand what they're looking for.

For tech support questions, ask about:
- Specific symptoms or error messages they're seeing
- When the problem started
- What they've already tried
- The device/software version they're using

For example, if they ask "how do I fix my computer", respond with something like:
"I'd be happy to help you fix your computer. To provide the most relevant assistance, could you please tell me:
1. What specific issues are you experiencing? (slow performance, won't turn on, error messages, etc.)
2. When did you first notice this problem?
3. What have you already tried to resolve it?"

Keep your response conversational but focused on getting the specific information you need to provide a better answer.`
