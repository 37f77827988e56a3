// Package launcher starts the document frontend for local development. It
// makes sure the frontend has its dotenv file and dependencies, starts the
// backend in the background when nothing answers, and then runs the
// frontend in the foreground.
package launcher
