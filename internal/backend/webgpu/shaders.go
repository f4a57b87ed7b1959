//go:build windows

package webgpu

// workgroupSize is the number of threads per 1D workgroup.
const workgroupSize = 256

// matmulTile is the side of the 2D matmul workgroup.
const matmulTile = 16

// addShader performs element-wise addition: result = a + b.
const addShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] + b[idx];
    }
}
`

// addBroadcastShader adds a trailing-suffix operand: result = x + b[i % inner].
const addBroadcastShader = `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    inner: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = x[idx] + b[idx % params.inner];
    }
}
`

// matmulShader computes C = op(A) @ op(B), C is [M, N] and the shared
// dimension is K. A is stored [M, K] or, transposed, [K, M]; B is stored
// [K, N] or [N, K].
const matmulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    M: u32,
    K: u32,
    N: u32,
    flags: u32, // bit 0: transpose A, bit 1: transpose B
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;
    if (row >= params.M || col >= params.N) {
        return;
    }

    let transA = (params.flags & 1u) != 0u;
    let transB = (params.flags & 2u) != 0u;

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        var ai = row * params.K + k;
        if (transA) {
            ai = k * params.M + row;
        }
        var bi = k * params.N + col;
        if (transB) {
            bi = col * params.K + k;
        }
        sum = sum + a[ai] * b[bi];
    }
    result[row * params.N + col] = sum;
}
`
