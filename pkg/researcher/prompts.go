package researcher

// Prompt templates for the three LLM-backed steps. Each is formatted with
// fmt.Sprintf and sent as the system message; the user message is a short
// fixed trigger. All three request a raw JSON object response.

const queryWriterInstructions = `You are an expert at crafting web search queries.

Your goal is to generate a single targeted query that will gather useful
information about the following topic:

Topic: %s

Return the result as a JSON object with exactly this shape:
{
    "query": "the search query string"
}`

const summarizerNewInstructions = `You are an expert research summarizer.

Generate a high-quality summary of the provided web search results as they
relate to the research topic.

Topic: %s

Search results:
%s

Requirements:
1. Highlight the most relevant information from each source.
2. Provide a concise overview of the key points related to the topic.
3. Emphasize significant findings or insights.
4. Write a coherent flow of information, not a list of snippets.

Return the result as a JSON object with exactly this shape:
{
    "summary": "the summary text"
}`

const summarizerExtendInstructions = `You are an expert research summarizer.

Extend the existing summary with new information from the latest web search
results, keeping it focused on the research topic.

Topic: %s

Existing summary:
%s

New search results:
%s

Requirements:
1. Seamlessly integrate new information without repeating what is covered.
2. Maintain consistency with the existing summary's style and depth.
3. Only add new, non-redundant points.
4. Preserve the coherent flow of the text.

Return the result as a JSON object with exactly this shape:
{
    "summary": "the extended summary text"
}`

const reflectionInstructions = `You are an expert research assistant analyzing a summary about: %s.

Current summary:
%s

Your tasks:
1. Identify a knowledge gap or area that needs deeper exploration.
2. Generate a follow-up web search query that would help fill that gap.
3. Decide whether another research iteration is worthwhile.

The follow-up query must be self-contained and include the context needed
for a web search.

Return the result as a JSON object with exactly this shape:
{
    "follow_up_query": "the follow-up search query",
    "should_continue": true
}`
