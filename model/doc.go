/*

Package model provides the partitioner and the rating model of movierec.

Split routes every cell of a ratings matrix to train, test or validation. SVD fits a
truncated singular value decomposition of the demeaned train matrix and predicts ratings
of movies a user has not viewed yet.

*/
package model
