// Package charts renders the four dashboard charts (month, method,
// organizer top 10, evaluation level) as PNG images with go-chart.
package charts
