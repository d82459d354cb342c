// Package telemetry interprets streamed Cortex samples.
//
// Band power drives a debounce counter; sustained alpha and theta over
// threshold on the AF3/T7/T8 channels fires the trigger through a throttle
// gate. Poor contact quality on the same channels clears the counter.
package telemetry
