/*
Package compress provides a compressed in-memory matrix representation together with linear algebra kernels that operate directly on the compressed form.  Matrices and linear algebra are used extensively in scientific computing and machine learning applications.  Many real world datasets contain columns with low value cardinality e.g. categorical features, one hot encodings, quantised measurements.  Column wise compression takes advantage of this fact to optimise both memory usage and processing performance by storing each column (or co-coded set of columns) once per distinct value rather than once per row, and by executing kernels over the distinct values rather than over the rows.

A compressed matrix is an ordered collection of column groups.  Each column group covers a subset of the matrix columns with one of several encoding schemes:

1. Value encodings - column groups referencing a dictionary of the distinct value tuples occurring in their columns.  Encodings in this category include CONST (a single tuple shared by every row), DDC (Dense Dictionary Coding - a per row index into the dictionary), SDC (Sparse Dictionary Coding - a default tuple plus a sparse list of exceptions), RLE (Run Length Encoding - per tuple row runs) and OLE (Offset List Encoding - per tuple row offsets).

2. Pass through encodings - column groups embedding their columns without dictionary compression.  Encodings in this category include UNCOMPRESSED (an embedded dense or sparse matrix) and EMPTY (all zero columns storing nothing at all).

Kernels (aggregation, scalar and cell wise operators, matrix multiplication and transpose self multiplication) are dispatched per column group and exploit the encoding, typically performing work proportional to the number of distinct values rather than the number of rows.  Operations that cannot be expressed on the compressed form decompress once into a cached dense matrix and delegate.

The compressed matrix implements the Matrix interface defined within the gonum/mat package and so may be used interchangeably with matrix types defined within that package e.g. mat.Dense, mat.VecDense, and with the sparse matrix formats from the github.com/james-bowman/sparse package.
*/
package compress
