// Package gemini is the language-model collaborator behind the request
// handlers. It turns text and video inputs into structured JSON results by
// calling Google's Gemini API.
//
// The Processor builds a prompt per operation, asks the model for a JSON
// response, and decodes it into the operation's result type. Calls are
// retried with exponential backoff and jitter for transient failures;
// malformed responses and safety blocks fail immediately. Every call honours
// its context, so a task that times out stops waiting on the model.
package gemini
