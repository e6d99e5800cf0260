package autolink

// generationPrompt instructs the model to return strict JSON describing a
// legal scenario, the principles behind it, the constitutional articles
// involved, and positional principle-to-article links. The %s is the query.
const generationPrompt = `You are a legal AI assistant specializing in Indian law. Analyze the following query and provide a structured response.

Query: %s

A principle is a foundational legal idea that guides how constitutional rights are interpreted and applied in real-life situations. Principles should be formal, objective, and concise, focusing on the intent and scope of the law. Use the following examples as a guide for tone and language:

Examples:
- "Establishment of Wards Committees: This principle outlines the constitution of Wards Committees within large municipalities to enable effective governance at a local level."
- "Population Threshold for Wards Committees: This principle sets a population threshold for the implementation of Wards Committees within municipalities, specifically those with a population of over 3 lakhs."
- "Reservation of Seats for Scheduled Castes and Scheduled Tribes: Article 243T mandates the reservation of seats in every Municipality for the Scheduled Castes and Scheduled Tribes. The number of reserved seats is in proportion to their population in the Municipal area."

After listing principles and articles, add a list called "links", where each item is a string in the format "Principle N -> Article X,Y,Z", using the order of the lists above (e.g., "Principle 1 -> Article 2,3", "Principle 2 -> Article 1").

Respond with a JSON object containing:
1. "scenario": {"example": "A clear description of the legal situation as a scenario"}
2. "principles": ["List of relevant legal principles as strings, each following the above tone and format"]
3. "articles": ["List of HIGHLY relevant constitutional articles from the Indian Constitution, their descriptions not names"]
4. "links": ["Principle N -> Article X,Y,Z", ...]

The principles referenced in links MUST follow the same order as the principles list.
Focus on the Indian legal framework. Be specific and accurate.
Return ONLY the JSON object, no explanation or surrounding text.
JSON Response:`
