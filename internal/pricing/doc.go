// Package pricing computes sale prices for products and their alternate
// units of sale.
//
// Everything here is a pure function of its inputs. Exchange rates are
// passed in as a RateTable value; nothing is read from shared state. Values
// keep full decimal precision through the cost, price, discount and
// conversion chain; only the Display helpers round.
package pricing
