/*

Package base provides base data structures and functions for movierec.

The base data structures and functions include:

* Name Index

* Random Generator

* CSV Formatting

*/
package base
